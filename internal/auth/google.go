package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"autofy/backend/internal/config"
	"autofy/backend/internal/repository"
	"autofy/backend/pkg/models"
)

// GoogleConnector implements the OAuth flow used to connect a Google app
// (Gmail, Sheets, Calendar, Drive) to a user's workspace. The resulting
// tokens are stored as connected-app credentials, separate from the session
// established by the login flow.
type GoogleConnector struct {
	clientID     string
	clientSecret string
	redirectURL  string
	frontendURL  string
	creds        repository.CredentialStore
	logger       Logger
}

// NewGoogleConnector creates a connector from the application configuration.
func NewGoogleConnector(cfg *config.Config, creds repository.CredentialStore, logger Logger) *GoogleConnector {
	return &GoogleConnector{
		clientID:     cfg.Google.ClientID,
		clientSecret: cfg.Google.ClientSecret,
		redirectURL:  cfg.Google.RedirectURL,
		frontendURL:  cfg.Google.FrontendURL,
		creds:        creds,
		logger:       logger,
	}
}

// connectState is round-tripped through the OAuth state parameter so the
// callback knows which user and app initiated the flow.
type connectState struct {
	UserID string `json:"userId"`
	App    string `json:"app"`
}

func (g *GoogleConnector) oauthConfig(app string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.clientID,
		ClientSecret: g.clientSecret,
		Endpoint:     googleoauth.Endpoint,
		RedirectURL:  g.redirectURL,
		Scopes:       ScopesFor(app),
	}
}

// Connect returns the Google consent URL for connecting an app.
// (GET /api/v1/connect/:app)
func (g *GoogleConnector) Connect(c echo.Context) error {
	app := c.Param("app")
	if ScopesFor(app) == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported app: "+app)
	}

	userID, ok := c.Request().Context().Value("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found in context")
	}

	raw, err := json.Marshal(connectState{UserID: userID, App: app})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to encode state")
	}
	state := base64.URLEncoding.EncodeToString(raw)

	// AccessTypeOffline with prompt=consent forces Google to issue a refresh
	// token even when the user has previously approved these scopes.
	url := g.oauthConfig(app).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	return c.JSON(http.StatusOK, map[string]string{"authUrl": url})
}

// Callback exchanges the authorization code for tokens, identifies the Google
// account, and stores the credential. It redirects back to the frontend with
// a success or error marker.
// (GET /oauth2/google/callback)
func (g *GoogleConnector) Callback(c echo.Context) error {
	ctx := c.Request().Context()

	if errParam := c.QueryParam("error"); errParam != "" {
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error="+errParam)
	}

	raw, err := base64.URLEncoding.DecodeString(c.QueryParam("state"))
	if err != nil {
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error=invalid_state")
	}
	var state connectState
	if err := json.Unmarshal(raw, &state); err != nil || state.UserID == "" || ScopesFor(state.App) == nil {
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error=invalid_state")
	}

	conf := g.oauthConfig(state.App)
	token, err := conf.Exchange(ctx, c.QueryParam("code"))
	if err != nil {
		g.logger.Error("token exchange for %s failed: %v", state.App, err)
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error=exchange_failed")
	}

	email, err := g.accountEmail(ctx, conf, token)
	if err != nil {
		g.logger.Error("failed to identify connected account: %v", err)
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error=userinfo_failed")
	}

	app := models.ConnectedApp{
		AppName:      state.App,
		AccountEmail: email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       ScopesFor(state.App),
		ConnectedAt:  time.Now().UTC(),
	}
	if err := g.creds.Upsert(ctx, state.UserID, app); err != nil {
		g.logger.Error("failed to store credential for %s: %v", state.App, err)
		return c.Redirect(http.StatusTemporaryRedirect, g.frontendURL+"/connections?error=store_failed")
	}

	g.logger.Info("connected %s (%s) for user %s", state.App, email, state.UserID)
	return c.Redirect(http.StatusTemporaryRedirect,
		fmt.Sprintf("%s/connections?connected=%s", g.frontendURL, state.App))
}

// ConnectedApps lists the apps connected to the calling user's workspace.
// (GET /api/v1/connections)
func (g *GoogleConnector) ConnectedApps(c echo.Context) error {
	userID, ok := c.Request().Context().Value("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found in context")
	}

	apps, err := g.creds.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list connections: "+err.Error())
	}
	if apps == nil {
		apps = []models.ConnectedApp{}
	}
	return c.JSON(http.StatusOK, apps)
}

// Disconnect removes a connected app credential.
// (DELETE /api/v1/connections/:app/:email)
func (g *GoogleConnector) Disconnect(c echo.Context) error {
	userID, ok := c.Request().Context().Value("user_id").(string)
	if !ok || userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found in context")
	}

	app := c.Param("app")
	email := c.Param("email")
	if err := g.creds.Delete(c.Request().Context(), userID, app, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "connection not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to disconnect: "+err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (g *GoogleConnector) accountEmail(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (string, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response missing email")
	}
	return info.Email, nil
}
