package entity

// Subject is the caller identified by a valid credential.
type Subject struct {
	ID    string
	Email string
}

// Session is what a successful login hands back to the client.
type Session struct {
	AccessToken string `json:"access_token"`
}
