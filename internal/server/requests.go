package server

// LoginRequest is the body of POST /auth.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,max=254,email,emaildomain"`
	Password string `json:"password" form:"password" validate:"required"`
}

// CreateUserRequest is the body of POST /user.
type CreateUserRequest struct {
	UserName string `json:"userName" form:"userName" validate:"required,notblank,max=64"`
	Email    string `json:"email" form:"email" validate:"required,max=254,email,emaildomain"`
	Password string `json:"password" form:"password" validate:"required,strongpassword"`
}

// UpdateUserRequest is the multipart or JSON body of PATCH /user/:userId. Blank fields are ignored.
type UpdateUserRequest struct {
	UserName    string `json:"userName" form:"userName" validate:"omitempty,max=64"`
	Description string `json:"description" form:"description" validate:"omitempty,max=1000"`
}

// CreatePostRequest is the multipart body of POST /post. The image part is required.
type CreatePostRequest struct {
	Title       string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Category    string `json:"category" form:"category" validate:"required,notblank"`
	Ingredients string `json:"ingredients" form:"ingredients" validate:"required,notblank"`
	Recipe      string `json:"recipe" form:"recipe" validate:"required,notblank"`
}

// UpdatePostRequest is the multipart or JSON body of PATCH /post/:postId. Blank fields are ignored.
type UpdatePostRequest struct {
	Title       string `json:"title" form:"title" validate:"omitempty,max=200"`
	Category    string `json:"category" form:"category"`
	Ingredients string `json:"ingredients" form:"ingredients"`
	Recipe      string `json:"recipe" form:"recipe"`
}

// CreateCategoryRequest is the body of POST /category.
type CreateCategoryRequest struct {
	Title string `json:"title" form:"title" validate:"required,notblank,max=100"`
}

// CreateCommentRequest is the body of POST /comment.
type CreateCommentRequest struct {
	PostID string `json:"postId" form:"postId" validate:"required,notblank"`
	Text   string `json:"text" form:"text" validate:"required,notblank,max=2000"`
}
