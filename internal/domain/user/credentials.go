package user

// UnknownID names the placeholder account used when configuration lists none.
const UnknownID = "unknown"

// Account is one facility login. Credentials come from the configuration
// source; nothing here persists them.
type Account struct {
	ID       string `json:"user_id" mapstructure:"user_id"`
	Password string `json:"-" mapstructure:"user_pw"`
}

func (a Account) Valid() bool {
	return a.ID != "" && a.ID != UnknownID && a.Password != ""
}

// Placeholder is what the session layer runs when no account is configured:
// it opens the login page but never submits credentials.
func Placeholder() Account {
	return Account{ID: UnknownID}
}
