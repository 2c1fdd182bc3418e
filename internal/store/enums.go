package store

// Role ENUMs (claims supplied by the identity provider)
const (
	RoleUser       = "user"
	RoleAgent      = "agent"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Campaign ENUMs
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

const (
	CampaignTypeFeatured     = "featured"
	CampaignTypePremium      = "premium"
	CampaignTypeSuperPremium = "super_premium"
	CampaignTypeBanner       = "banner"
)

const (
	BidTypeFlatFee = "flat_fee"
	BidTypeCPC     = "cpc"
	BidTypeCPM     = "cpm"
)

// Impression ENUMs
const (
	EventTypeImpression    = "impression"
	EventTypeClick         = "click"
	EventTypeWhatsAppClick = "whatsapp_click"
)

// Transaction ENUMs
const (
	TransactionStatusPending  = "pending"
	TransactionStatusPaid     = "paid"
	TransactionStatusFailed   = "failed"
	TransactionStatusRefunded = "refunded"
)

// Lead ENUMs
const (
	LeadStatusNew           = "new"
	LeadStatusContacted     = "contacted"
	LeadStatusQualified     = "qualified"
	LeadStatusNotInterested = "not_interested"
	LeadStatusConverted     = "converted"
	LeadStatusLost          = "lost"
)

const (
	LeadSourceWhatsApp    = "whatsapp"
	LeadSourceContactForm = "contact_form"
	LeadSourceCall        = "call"
	LeadSourceWebsite     = "website"
)

const (
	LeadPriorityLow    = "low"
	LeadPriorityNormal = "normal"
	LeadPriorityHigh   = "high"
)

// Lead Message ENUMs
const (
	MessageRoleVisitor = "visitor"
	MessageRoleAgent   = "agent"
	MessageRoleSystem  = "system"
)

const (
	MessageChannelWhatsApp = "whatsapp"
	MessageChannelWeb      = "web"
	MessageChannelEmail    = "email"
	MessageChannelCall     = "call"
)

const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeFile     = "file"
	MessageTypeTemplate = "template"
)

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
	MessageStatusFailed    = "failed"
)

// WhatsApp Conversation ENUMs
const (
	ConversationStatusActive  = "active"
	ConversationStatusBlocked = "blocked"
	ConversationStatusExpired = "expired"
)

// Membership ENUMs
const (
	MembershipFree    = "free"
	MembershipPremium = "premium"
	MembershipPro     = "pro"
)
