package entity

// ConversationView is what a viewer receives for one conversation. It never
// exposes the other participant's watermark.
type ConversationView struct {
	ID                int64       `json:"id"`
	OtherUser         UserProfile `json:"other_user"`
	LastReadMessageID *int64      `json:"last_read_message_id"`
	LatestMessageText string      `json:"latest_message_text"`
	UnseenCount       int         `json:"unseen_count"`
	IsTyping          bool        `json:"is_typing"`
	Messages          []*Message  `json:"messages"`
}
