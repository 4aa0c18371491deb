package auth

// CreateSuperAdminRequest bootstraps the first privileged user; gated by
// the deployment's shared superadmin key, not by a credential.
type CreateSuperAdminRequest struct {
	Username      string `json:"username" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	SuperadminKey string `json:"superadminKey" validate:"required"`
}

type CreateSchoolAdminRequest struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	SchoolName string `json:"schoolName" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenPair is the issued session: short-lived access credential plus
// the stored refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
