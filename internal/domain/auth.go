package domain

// TokenKind differentiates access and refresh tokens.
type TokenKind int

const (
	TokenKindAccess TokenKind = iota
	TokenKindRefresh
)

func (k TokenKind) String() string {
	if k == TokenKindRefresh {
		return "refresh"
	}
	return "access"
}

// TokenUser is the account payload carried inside every token.
type TokenUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
