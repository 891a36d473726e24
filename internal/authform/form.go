// Package authform implements the login/registration form: mode switching,
// per-mode validation and submission through an Authenticator.
package authform

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/blackmichael/connectify/internal/domain"
)

// Mode is the form's current page.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// Field names match the remote API's JSON keys.
type Field string

const (
	FieldFirstName  Field = "firstName"
	FieldLastName   Field = "lastName"
	FieldEmail      Field = "email"
	FieldPassword   Field = "password"
	FieldLocation   Field = "location"
	FieldOccupation Field = "occupation"
	FieldPicture    Field = "picture"
)

const (
	loginFallback    = "Invalid email or password"
	registerFallback = "Registration failed. Please try again."

	// HomePath is where a successful login navigates.
	HomePath = "/home"
)

// Authenticator is the subset of domain.AuthService the form drives.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error)
	Register(ctx context.Context, req domain.RegisterRequest) (domain.Identity, error)
}

// Outcome is the result of a successful submit.
type Outcome struct {
	// Navigate is the path to move to, empty to stay on the form.
	Navigate string

	// Identity is the logged in or newly registered user.
	Identity domain.Identity
}

// Option configures a Form.
type Option func(*Form)

// WithRequirePicture controls whether registration needs a profile picture.
// It defaults to true.
func WithRequirePicture(required bool) Option {
	return func(f *Form) {
		f.requirePicture = required
	}
}

// WithLogger sets the form's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// Form holds the entered values, validation errors and the last failure
// notice. It is not safe for concurrent use.
type Form struct {
	auth           Authenticator
	logger         *slog.Logger
	validate       *validator.Validate
	requirePicture bool

	mode        Mode
	values      map[Field]string
	picture     *domain.Attachment
	fieldErrors map[Field]string
	notice      string
}

// New creates a form in login mode.
func New(auth Authenticator, opts ...Option) *Form {
	f := &Form{
		auth:           auth,
		logger:         slog.New(slog.DiscardHandler),
		validate:       newValidator(),
		requirePicture: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.reset()
	return f
}

// Mode returns the current mode.
func (f *Form) Mode() Mode {
	return f.mode
}

// Toggle switches between login and register and clears every value and
// error.
func (f *Form) Toggle() {
	if f.mode == ModeLogin {
		f.mode = ModeRegister
	} else {
		f.mode = ModeLogin
	}
	f.reset()
}

// Fields lists the fields shown in the current mode, in display order.
func (f *Form) Fields() []Field {
	if f.mode == ModeRegister {
		return []Field{FieldFirstName, FieldLastName, FieldLocation, FieldOccupation, FieldEmail, FieldPassword}
	}
	return []Field{FieldEmail, FieldPassword}
}

// Set stores a field value.
func (f *Form) Set(field Field, value string) {
	f.values[field] = value
}

// Value returns a field value.
func (f *Form) Value(field Field) string {
	return f.values[field]
}

// SetPicture attaches a profile picture for registration. nil removes it.
func (f *Form) SetPicture(picture *domain.Attachment) {
	f.picture = picture
}

// Errors returns a copy of the per-field validation errors of the last
// submit.
func (f *Form) Errors() map[Field]string {
	out := make(map[Field]string, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		out[k] = v
	}
	return out
}

// Notice is the user-facing message of the last failed submit.
func (f *Form) Notice() string {
	return f.notice
}

// Submit validates the active mode's fields and, when they pass, sends the
// login or registration request. Validation failures never reach the
// network.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.notice = ""
	f.fieldErrors = map[Field]string{}

	if errs := f.check(); len(errs) > 0 {
		f.fieldErrors = errs
		fields := make(map[string]string, len(errs))
		for k, v := range errs {
			fields[string(k)] = v
		}
		f.logger.Debug("form rejected", "mode", f.mode, "fields", len(errs))
		return Outcome{}, &domain.ValidationError{Fields: fields}
	}

	if f.mode == ModeLogin {
		return f.submitLogin(ctx)
	}
	return f.submitRegister(ctx)
}

func (f *Form) submitLogin(ctx context.Context) (Outcome, error) {
	identity, err := f.auth.Login(ctx, domain.Credentials{
		Email:    f.trimmed(FieldEmail),
		Password: f.values[FieldPassword],
	})
	if err != nil {
		f.fail(domain.UserMessage(err, loginFallback))
		return Outcome{}, err
	}

	f.reset()
	return Outcome{Navigate: HomePath, Identity: identity}, nil
}

func (f *Form) submitRegister(ctx context.Context) (Outcome, error) {
	identity, err := f.auth.Register(ctx, domain.RegisterRequest{
		FirstName:  f.trimmed(FieldFirstName),
		LastName:   f.trimmed(FieldLastName),
		Email:      f.trimmed(FieldEmail),
		Password:   f.values[FieldPassword],
		Location:   f.trimmed(FieldLocation),
		Occupation: f.trimmed(FieldOccupation),
		Picture:    f.picture,
	})
	if err != nil {
		f.fail(registrationMessage(err))
		return Outcome{}, err
	}

	f.mode = ModeLogin
	f.reset()
	return Outcome{Identity: identity}, nil
}

// fail records the notice and clears the password. Other values stay so the
// user can correct them.
func (f *Form) fail(notice string) {
	f.notice = notice
	f.values[FieldPassword] = ""
}

func (f *Form) reset() {
	f.values = make(map[Field]string)
	f.picture = nil
	f.fieldErrors = map[Field]string{}
	f.notice = ""
}

// registrationMessage surfaces the server's message only when it concerns the
// email address; anything else gets the generic registration text.
func registrationMessage(err error) string {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HasMessage && strings.Contains(strings.ToLower(apiErr.Message), "email") {
			return apiErr.Message
		}
		return registerFallback
	}
	return domain.UserMessage(err, registerFallback)
}
