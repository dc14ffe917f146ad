package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/example/court-scheduler/internal/internaltypes"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

// Operator is the single console login, configured from the environment.
type Operator struct {
	Username       string
	PasswordBcrypt string
}

type Store struct {
	sc       *securecookie.SecureCookie
	operator Operator
}

type ctxKey string

const operatorKey ctxKey = "operator"

const sessionTTL = 12 * time.Hour

func NewStore(hashKey, blockKey []byte, op Operator) *Store {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Store{sc: sc, operator: op}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	return err == nil
}

// Authenticate checks the operator credentials. With no password hash
// configured nobody can log in.
func (s *Store) Authenticate(username, password string) (string, error) {
	if s.operator.PasswordBcrypt == "" {
		return "", internaltypes.ErrUnauthorized
	}
	if !secureEq(username, s.operator.Username) || !CheckPassword(s.operator.PasswordBcrypt, password) {
		return "", internaltypes.ErrUnauthorized
	}
	return s.operator.Username, nil
}

type Session struct {
	Operator string
}

const cookieName = "courtsched_session"

func (s *Store) SetSession(w http.ResponseWriter, r *http.Request, operator string) error {
	val := map[string]string{"op": operator, "v": "1"}
	encoded, err := s.sc.Encode(cookieName, val)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (s *Store) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (s *Store) GetSession(r *http.Request) (Session, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return Session{}, false
	}
	val := map[string]string{}
	if err := s.sc.Decode(cookieName, c.Value, &val); err != nil {
		return Session{}, false
	}
	op := val["op"]
	if op == "" || op != s.operator.Username {
		return Session{}, false
	}
	return Session{Operator: op}, true
}

// RequireAuth rejects requests without a valid operator cookie.
func (s *Store) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.GetSession(r)
		if !ok {
			http.Error(w, internaltypes.ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, sess.Operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func OperatorFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(operatorKey).(string)
	return op, ok
}

func secureEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
