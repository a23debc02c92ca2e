// Package smoke drives the gateway through the happy path a new customer
// takes: register, log in, stock an album, order it, and list the order.
package smoke

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jcmexdev/disqueria/internal/pkg/commands"
)

// Report is what a successful run created.
type Report struct {
	UserID   string
	ArtistID string
	AlbumID  string
	OrderID  string
	Total    float64
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type Runner struct {
	client *resty.Client
	now    func() time.Time
}

func NewRunner(baseURL string, timeout time.Duration) *Runner {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Runner{client: client, now: time.Now}
}

// Run executes the flow once and fails on the first unexpected answer.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	var rep Report
	email := fmt.Sprintf("smoke%d@example.com", r.now().UnixNano())
	const password = "securePassword123"

	var user commands.User
	if err := r.call(ctx, "register", "POST", "/users", "", commands.CreateUserPayload{
		Email: email, Password: password, Name: "Smoke Test",
	}, &user); err != nil {
		return rep, err
	}
	rep.UserID = user.ID

	var session struct {
		AccessToken string `json:"access_token"`
	}
	if err := r.call(ctx, "login", "POST", "/auth/login", "", commands.Credentials{Email: email, Password: password}, &session); err != nil {
		return rep, err
	}
	if session.AccessToken == "" {
		return rep, fmt.Errorf("login: no access token in reply")
	}
	token := session.AccessToken

	var artist commands.Artist
	if err := r.call(ctx, "create artist", "POST", "/catalog/artists", token, commands.CreateArtistPayload{
		Name: "Smoke Artist", Country: "AR",
	}, &artist); err != nil {
		return rep, err
	}
	rep.ArtistID = artist.ID

	var album commands.Album
	if err := r.call(ctx, "create album", "POST", "/catalog/albums", token, commands.CreateAlbumPayload{
		Title: "Smoke Album", Year: 2024, Genre: "Rock", Price: 15000, Stock: 3, ArtistID: artist.ID,
	}, &album); err != nil {
		return rep, err
	}
	rep.AlbumID = album.ID

	var order commands.Order
	if err := r.call(ctx, "create order", "POST", "/orders", token, commands.CreateOrderPayload{
		UserID: user.ID,
		Items:  []commands.OrderLine{{AlbumID: album.ID, Quantity: 2, Price: album.Price}},
	}, &order); err != nil {
		return rep, err
	}
	if want := 2 * album.Price; math.Abs(order.Total-want) > 1e-9 {
		return rep, fmt.Errorf("create order: total %.2f, want %.2f", order.Total, want)
	}
	rep.OrderID, rep.Total = order.ID, order.Total

	var orders []commands.Order
	if err := r.call(ctx, "list orders", "GET", "/orders/user/"+user.ID, token, nil, &orders); err != nil {
		return rep, err
	}
	if len(orders) != 1 || orders[0].ID != order.ID {
		return rep, fmt.Errorf("list orders: got %d orders, want the one just placed", len(orders))
	}

	slog.InfoContext(ctx, "smoke flow passed", "user_id", rep.UserID, "order_id", rep.OrderID, "total", rep.Total)
	return rep, nil
}

func (r *Runner) call(ctx context.Context, step, method, path, token string, body, out any) error {
	var failure apiError
	req := r.client.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&failure)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s: %s %s: status %d: %s", step, method, path, res.StatusCode(), failure.Message)
	}
	slog.DebugContext(ctx, "smoke step ok", "step", step, "status", res.StatusCode())
	return nil
}
