package model

// Message is a single chat message in a channel.
// Messages are append only and ordered by Timestamp ascending.
type Message struct {
	ID         string `json:"id" bson:"_id"`
	ChannelID  string `json:"channel_id" bson:"channel_id"`
	SenderID   string `json:"sender_id" bson:"sender_id"`
	SenderName string `json:"sender_name" bson:"sender_name"`
	Text       string `json:"text" bson:"text"`
	Timestamp  int64  `json:"timestamp" bson:"timestamp"` // epoch millis
}
