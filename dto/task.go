package dto

type ConvertResponse struct {
	TaskID  string `json:"task_id"`
	Mode    string `json:"mode"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type StatusResponse struct {
	TaskID      string `json:"task_id"`
	Mode        string `json:"mode"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
	Filename    string `json:"filename"`
}

type ContentResponse struct {
	TaskID           string `json:"task_id"`
	Content          string `json:"content"`
	Format           string `json:"format"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int    `json:"size_bytes"`
}

type BatchDownloadRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
