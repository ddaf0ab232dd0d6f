package domain

import "fmt"

// UserType is the marketplace role of an account. Values match the backend wire format.
type UserType string

const (
	UserTypeAdmin        UserType = "ADMIN"
	UserTypeVeterinarian UserType = "VETERINARIO"
	UserTypeMerchant     UserType = "LOJISTA"
	UserTypeTutor        UserType = "TUTOR"
)

// UserTypes lists every role in a stable order.
var UserTypes = []UserType{UserTypeAdmin, UserTypeVeterinarian, UserTypeMerchant, UserTypeTutor}

// ParseUserType validates a raw role string.
func ParseUserType(s string) (UserType, error) {
	for _, t := range UserTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUserType, s)
}

// StoreType classifies a merchant's business.
type StoreType string

const (
	StoreTypePetShop             StoreType = "PET_SHOP"
	StoreTypeClinicaVeterinaria  StoreType = "CLINICA_VETERINARIA"
	StoreTypeHospitalVeterinario StoreType = "HOSPITAL_VETERINARIO"
	StoreTypePetisco             StoreType = "PETISCO"
	StoreTypeAcessorios          StoreType = "ACESSORIOS"
)

// UserProfile holds the role-specific fields. All of them are optional.
type UserProfile struct {
	Nome          string    `json:"nome,omitempty"`
	Location      string    `json:"location,omitempty"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	CNPJ          string    `json:"cnpj,omitempty"` // merchant tax id
	CRMV          string    `json:"crmv,omitempty"` // veterinarian license id
	StoreType     StoreType `json:"storeType,omitempty"`
	BusinessHours string    `json:"businessHours,omitempty"`
	Guardian      string    `json:"guardian,omitempty"` // guardian name for minors
}

// User is the identity returned by the auth backend and cached in the session.
type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	FullName    string       `json:"fullName"`
	UserType    UserType     `json:"userType"`
	Active      bool         `json:"active"`
	UserProfile *UserProfile `json:"userProfile,omitempty"`

	// Timestamps are kept as sent; the backend emits zone-less ISO dates.
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy so callers never share the cached profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.UserProfile != nil {
		p := *u.UserProfile
		c.UserProfile = &p
	}
	return &c
}

// UserPatch carries the fields UpdateUser merges into the cached user.
// Nil fields are left unchanged.
type UserPatch struct {
	Username    *string      `json:"username,omitempty"`
	Email       *string      `json:"email,omitempty"`
	FullName    *string      `json:"fullName,omitempty"`
	Active      *bool        `json:"active,omitempty"`
	UserProfile *UserProfile `json:"userProfile,omitempty"`
}

// Apply performs a shallow merge of p into u. The profile is replaced as a whole.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	if p.UserProfile != nil {
		prof := *p.UserProfile
		u.UserProfile = &prof
	}
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload sent to the backend. Callers validate it
// (password confirmation, security answers) before handing it to the session store.
type Registration struct {
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	FullName          string    `json:"fullName"`
	UserType          UserType  `json:"userType"`
	SecurityQuestion1 string    `json:"securityQuestion1"`
	SecurityAnswer1   string    `json:"securityAnswer1"`
	SecurityQuestion2 string    `json:"securityQuestion2"`
	SecurityAnswer2   string    `json:"securityAnswer2"`
	SecurityQuestion3 string    `json:"securityQuestion3"`
	SecurityAnswer3   string    `json:"securityAnswer3"`
	Nome              string    `json:"nome,omitempty"`
	Location          string    `json:"location,omitempty"`
	ContactNumber     string    `json:"contactNumber,omitempty"`
	CNPJ              string    `json:"cnpj,omitempty"`
	CRMV              string    `json:"crmv,omitempty"`
	StoreType         StoreType `json:"storeType,omitempty"`
	BusinessHours     string    `json:"businessHours,omitempty"`
	Guardian          string    `json:"guardian,omitempty"`
}

// AuthResult is what login, register and refresh-token return.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}
