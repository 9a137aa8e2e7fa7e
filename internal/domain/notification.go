package domain

import "time"

type NotificationType string

const (
	NotificationTypeEarningRecorded     NotificationType = "EARNING_RECORDED"
	NotificationTypeWithdrawalRequested NotificationType = "WITHDRAWAL_REQUESTED"
	NotificationTypeWithdrawalApproved  NotificationType = "WITHDRAWAL_APPROVED"
	NotificationTypeWithdrawalRejected  NotificationType = "WITHDRAWAL_REJECTED"
	NotificationTypeBalanceAdjusted     NotificationType = "BALANCE_ADJUSTED"
	NotificationTypeRefundUpdated       NotificationType = "REFUND_UPDATED"
	NotificationTypeReconcileMismatch   NotificationType = "RECONCILE_MISMATCH"
)

// Recipient identifies who a notification is for. Role recipients (for
// example the finance team) leave OwnerID empty.
type Recipient struct {
	OwnerType OwnerType `json:"owner_type,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Role      string    `json:"role,omitempty"`
}

type Notification struct {
	Type       NotificationType  `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
