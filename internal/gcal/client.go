package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"syncmeet/internal/domain"
	"syncmeet/internal/repository"
)

// ErrNotConnected indica que el usuario no vinculo su Google Calendar.
var ErrNotConnected = errors.New("google calendar not connected for user")

// API son las operaciones de calendario que consume la capa de sync.
// Cada llamada actua sobre el calendario primario del usuario indicado.
type API interface {
	InsertEvent(ctx context.Context, userID string, ev *calendar.Event) (*calendar.Event, error)
	PatchEvent(ctx context.Context, userID, eventID string, ev *calendar.Event) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
	ListUpcoming(ctx context.Context, userID string, max int64) ([]*calendar.Event, error)
}

// NewOAuthConfig arma la configuracion OAuth para el flujo de consentimiento
// y para refrescar tokens.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// Client implementa API contra la API real de Google Calendar. Antes de
// cada llamada carga la credencial del usuario y, si el access token
// vencio y hay refresh token, lo renueva y persiste el resultado. Las
// operaciones de arriba nunca ven ese refresco.
type Client struct {
	oauth  *oauth2.Config
	creds  repository.CredentialRepository
	logger *zap.Logger
}

func NewClient(oauth *oauth2.Config, creds repository.CredentialRepository, logger *zap.Logger) *Client {
	return &Client{oauth: oauth, creds: creds, logger: logger}
}

func (c *Client) InsertEvent(ctx context.Context, userID string, ev *calendar.Event) (*calendar.Event, error) {
	svc, err := c.serviceFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return svc.Events.Insert("primary", ev).Context(ctx).Do()
}

func (c *Client) PatchEvent(ctx context.Context, userID, eventID string, ev *calendar.Event) (*calendar.Event, error) {
	svc, err := c.serviceFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return svc.Events.Patch("primary", eventID, ev).Context(ctx).Do()
}

func (c *Client) DeleteEvent(ctx context.Context, userID, eventID string) error {
	svc, err := c.serviceFor(ctx, userID)
	if err != nil {
		return err
	}
	err = svc.Events.Delete("primary", eventID).Context(ctx).Do()
	if IsGone(err) {
		// Ya no existe del lado de Google; borrar algo borrado no es error.
		return nil
	}
	return err
}

func (c *Client) ListUpcoming(ctx context.Context, userID string, max int64) ([]*calendar.Event, error) {
	svc, err := c.serviceFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	res, err := svc.Events.List("primary").
		TimeMin(time.Now().UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Exchange canjea el codigo de autorizacion y persiste los tokens del usuario.
func (c *Client) Exchange(ctx context.Context, userID, code string) error {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return c.persist(ctx, userID, tok, domain.GoogleCredential{})
}

func (c *Client) serviceFor(ctx context.Context, userID string) (*calendar.Service, error) {
	ts, err := c.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return calendar.NewService(ctx, option.WithTokenSource(ts))
}

func (c *Client) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	cred, err := c.creds.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load google credential: %w", err)
	}
	if !cred.Connected() {
		return nil, ErrNotConnected
	}

	tok := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if cred.Expiry != nil {
		tok.Expiry = *cred.Expiry
	}

	return &persistingTokenSource{
		ctx:    ctx,
		userID: userID,
		prev:   cred,
		src:    c.oauth.TokenSource(ctx, tok),
		client: c,
	}, nil
}

func (c *Client) persist(ctx context.Context, userID string, tok *oauth2.Token, prev domain.GoogleCredential) error {
	cred := domain.GoogleCredential{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	// Google solo manda refresh token en el primer consentimiento o al
	// rotarlo; si no vino uno nuevo, conservamos el guardado.
	if cred.RefreshToken == "" {
		cred.RefreshToken = prev.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		cred.Expiry = &expiry
	}
	return c.creds.Save(ctx, cred)
}

// persistingTokenSource envuelve el TokenSource de oauth2 y guarda el token
// cuando el refresco transparente produjo uno nuevo.
type persistingTokenSource struct {
	ctx    context.Context
	userID string
	prev   domain.GoogleCredential
	src    oauth2.TokenSource
	client *Client
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.prev.AccessToken {
		if err := s.client.persist(s.ctx, s.userID, tok, s.prev); err != nil {
			// La llamada de calendario puede seguir con el token en mano.
			s.client.logger.Warn("persist refreshed google token failed",
				zap.String("user_id", s.userID), zap.Error(err))
		} else {
			s.prev.AccessToken = tok.AccessToken
			if tok.RefreshToken != "" {
				s.prev.RefreshToken = tok.RefreshToken
			}
		}
	}
	return tok, nil
}

// IsGone reporta si el error de la API dice que el evento ya no existe.
func IsGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}
