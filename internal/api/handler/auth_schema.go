package handler

import "github.com/petconnect/web-gateway/internal/core/domain"

// errorResponse is the error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username        string `json:"username"        validate:"required,min=3"`
	Email           string `json:"email"           validate:"required,email"`
	Password        string `json:"password"        validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FullName        string `json:"fullName"        validate:"required"`
	UserType        string `json:"userType"        validate:"required,oneof=ADMIN VETERINARIO LOJISTA TUTOR"`

	SecurityQuestion1 string `json:"securityQuestion1" validate:"required"`
	SecurityAnswer1   string `json:"securityAnswer1"   validate:"required"`
	SecurityQuestion2 string `json:"securityQuestion2" validate:"required"`
	SecurityAnswer2   string `json:"securityAnswer2"   validate:"required"`
	SecurityQuestion3 string `json:"securityQuestion3" validate:"required"`
	SecurityAnswer3   string `json:"securityAnswer3"   validate:"required"`

	Nome          string `json:"nome,omitempty"`
	Location      string `json:"location,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
	CNPJ          string `json:"cnpj,omitempty"`
	CRMV          string `json:"crmv,omitempty"`
	StoreType     string `json:"storeType,omitempty" validate:"omitempty,oneof=PET_SHOP CLINICA_VETERINARIA HOSPITAL_VETERINARIO PETISCO ACESSORIOS"`
	BusinessHours string `json:"businessHours,omitempty"`
	Guardian      string `json:"guardian,omitempty"`
}

// toRegistration maps the validated form to the backend payload. The
// confirmation field stays here.
func (r registerRequest) toRegistration() domain.Registration {
	return domain.Registration{
		Username:          r.Username,
		Email:             r.Email,
		Password:          r.Password,
		FullName:          r.FullName,
		UserType:          domain.UserType(r.UserType),
		SecurityQuestion1: r.SecurityQuestion1,
		SecurityAnswer1:   r.SecurityAnswer1,
		SecurityQuestion2: r.SecurityQuestion2,
		SecurityAnswer2:   r.SecurityAnswer2,
		SecurityQuestion3: r.SecurityQuestion3,
		SecurityAnswer3:   r.SecurityAnswer3,
		Nome:              r.Nome,
		Location:          r.Location,
		ContactNumber:     r.ContactNumber,
		CNPJ:              r.CNPJ,
		CRMV:              r.CRMV,
		StoreType:         domain.StoreType(r.StoreType),
		BusinessHours:     r.BusinessHours,
		Guardian:          r.Guardian,
	}
}

type resetPasswordRequest struct {
	Email              string `json:"email"              validate:"required,email"`
	SecurityAnswer     string `json:"securityAnswer"     validate:"required"`
	NewPassword        string `json:"newPassword"        validate:"required,min=6"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

type authResponse struct {
	User     *domain.User `json:"user"`
	Redirect string       `json:"redirect,omitempty"`
}

type questionResponse struct {
	Question string `json:"question"`
}

type messageResponse struct {
	Message string `json:"message"`
}
