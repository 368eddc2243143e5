package validation

// RegisterForm is the schema of the registration form.
type RegisterForm struct {
	Username  string `form:"username" json:"username" validate:"required,min=1,max=20"`
	Password  string `form:"password" json:"password" validate:"required,min=6,max=55"`
	Email     string `form:"email" json:"email" validate:"required,email,max=50"`
	FirstName string `form:"first_name" json:"first_name" validate:"required,max=50"`
	LastName  string `form:"last_name" json:"last_name" validate:"required,max=50"`
}

// LoginForm is the schema of the login form and of the API token request.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required,min=1,max=20"`
	Password string `form:"password" json:"password" validate:"required,min=6,max=55"`
}

// FeedbackForm is the schema of the add/edit feedback forms.
type FeedbackForm struct {
	Title   string `form:"title" json:"title" validate:"required,max=100"`
	Content string `form:"content" json:"content" validate:"required"`
}
