package authapi

// Messages holds the user-facing error strings surfaced by the auth API.
// The defaults match the platform's primary locale; embedders with their own
// localization layer override them via WithMessages.
type Messages struct {
	TenantNotFound     string
	InvalidCredentials string
	ServerUnreachable  string
	SessionInvalid     string
}

// DefaultMessages returns the platform's stock Vietnamese strings.
func DefaultMessages() Messages {
	return Messages{
		TenantNotFound:     "Mã doanh nghiệp không tồn tại",
		InvalidCredentials: "Tên đăng nhập hoặc mật khẩu không đúng",
		ServerUnreachable:  "Không thể kết nối đến máy chủ",
		SessionInvalid:     "Phiên đăng nhập không hợp lệ, vui lòng đăng nhập lại",
	}
}
