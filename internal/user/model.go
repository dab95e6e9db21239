package user

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Person is the public shape of a user, as served by the people listing.
type Person struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// CredentialsRequest covers both register and login bodies.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
