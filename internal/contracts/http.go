package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type CreatePostRequest struct {
	Content      string   `json:"content"`
	PostType     string   `json:"post_type,omitempty"`
	Hashtags     []string `json:"hashtags,omitempty"`
	FirstComment string   `json:"first_comment,omitempty"`
	MediaURLs    []string `json:"media_urls,omitempty"`
	ScheduledAt  string   `json:"scheduled_at,omitempty"`
}

type UpdatePostRequest = CreatePostRequest

type PublishPostRequest struct {
	AccountIDs []string `json:"account_ids"`
}

type ReconcileRequest struct {
	DaysBack int `json:"days_back,omitempty"`
}
