package resources

// Problem is the application/problem+json error document returned by the
// server with non-2xx responses.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Detail string `json:"detail"`
	Status int    `json:"status,omitempty"`
}
