package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyUser          = "user"
	KeyBasicAuthUser = "basic_auth_user"
	KeyFromProtected = "from_protected"
	KeyIsAdmin       = "isAdmin"
)
