package auth

// OpenID Connect scopes requested during login.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

const (
	scopeUserinfoEmail   = "https://www.googleapis.com/auth/userinfo.email"
	scopeUserinfoProfile = "https://www.googleapis.com/auth/userinfo.profile"
)

// AppScopes maps a connectable app name to the Google OAuth scopes its
// adapters require. Every app also requests the userinfo scopes so the
// callback can identify which account was connected.
var AppScopes = map[string][]string{
	"Gmail": {
		"https://www.googleapis.com/auth/gmail.send",
		"https://www.googleapis.com/auth/gmail.readonly",
		scopeUserinfoEmail,
		scopeUserinfoProfile,
	},
	"Google Drive": {
		"https://www.googleapis.com/auth/drive.file",
		scopeUserinfoEmail,
		scopeUserinfoProfile,
	},
	"Google Calendar": {
		"https://www.googleapis.com/auth/calendar",
		scopeUserinfoEmail,
		scopeUserinfoProfile,
	},
	"Google Sheets": {
		"https://www.googleapis.com/auth/spreadsheets",
		scopeUserinfoEmail,
		scopeUserinfoProfile,
	},
}

// ScopesFor returns the OAuth scopes for an app, or nil when the app is not
// connectable.
func ScopesFor(app string) []string {
	return AppScopes[app]
}
