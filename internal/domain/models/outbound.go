package models

// OutboundMessageRequest is an operator-initiated WhatsApp message.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required,max=4096"`
	PreviewURL bool   `json:"previewUrl"`
}
