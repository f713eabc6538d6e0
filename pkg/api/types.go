package api

// Request bodies use pointer fields so a missing key is distinguishable
// from a zero value: every field below is required, and the validation
// layer reports absent ones by name.

// CredentialsRequest is the body for register, login and user update
type CredentialsRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// TodoRequest is the body for todo create and update
type TodoRequest struct {
	Title  *string `json:"title"`
	Public *bool   `json:"public"`
}

// ItemRequest is the body for item create and update
type ItemRequest struct {
	Content   *string `json:"content"`
	Completed *bool   `json:"completed"`
}

// ReviewRequest is the body for review create and update
type ReviewRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Stars   *int    `json:"stars"`
}

// TokenPair is the login response
type TokenPair struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

// AccessToken is the refresh response
type AccessToken struct {
	Token string `json:"token"`
}
