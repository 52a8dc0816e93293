package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gatekeeper/internal/auth"
	"github.com/mrlokans/gatekeeper/internal/config"
	"github.com/mrlokans/gatekeeper/internal/entities"
	"github.com/mrlokans/gatekeeper/internal/guard"
	"github.com/mrlokans/gatekeeper/internal/notify"
)

// UserLookup loads the signed-in account for the account page.
type UserLookup interface {
	GetUserByID(id uint) (*entities.User, error)
}

// AccountView is the account page payload. It never exposes secrets.
type AccountView struct {
	ID          uint              `json:"id"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	Role        entities.UserRole `json:"role"`
	HasAPIToken bool              `json:"has_api_token"`
	LastLoginAt string            `json:"last_login_at,omitempty"`
	MemberSince string            `json:"member_since"`
}

// PagesController serves the guarded pages and the public support page.
type PagesController struct {
	users    UserLookup
	notifier *notify.Notifier
	support  config.Support
	html     bool
}

func NewPagesController(users UserLookup, notifier *notify.Notifier, support config.Support, html bool) *PagesController {
	return &PagesController{
		users:    users,
		notifier: notifier,
		support:  support,
		html:     html,
	}
}

// HomePage renders the landing page for signed-in users.
// GET /home
func (pc *PagesController) HomePage(c *gin.Context) {
	pc.render(c, http.StatusOK, "home.html", pc.page(c, "Home", gin.H{}))
}

// DashboardPage renders the dashboard.
// GET /dashboard
func (pc *PagesController) DashboardPage(c *gin.Context) {
	pc.render(c, http.StatusOK, "dashboard.html", pc.page(c, "Dashboard", gin.H{
		"AuthType": auth.GetAuthType(c),
	}))
}

// AccountPage shows the signed-in user's account details.
// GET /account
func (pc *PagesController) AccountPage(c *gin.Context) {
	data := pc.page(c, "Account", gin.H{})

	if account, ok := pc.account(c); ok {
		data["Account"] = account
	}
	pc.render(c, http.StatusOK, "account.html", data)
}

// Me returns the identity the request was resolved to.
// GET /api/me
func (pc *PagesController) Me(c *gin.Context) {
	body := gin.H{
		"user_id":   auth.GetUserID(c),
		"username":  auth.GetUsername(c),
		"role":      auth.GetUserRole(c),
		"auth_type": auth.GetAuthType(c),
		"signal":    guard.SignalFrom(c).String(),
	}
	if toasts := pc.notifier.Pop(c.Request); len(toasts) > 0 {
		body["toasts"] = toasts
	}
	c.JSON(http.StatusOK, body)
}

// SupportPage shows the support contact details. It is public.
// GET /support
func (pc *PagesController) SupportPage(c *gin.Context) {
	pc.render(c, http.StatusOK, "support.html", gin.H{
		"Title":   "Support",
		"Support": pc.support,
	})
}

func (pc *PagesController) account(c *gin.Context) (AccountView, bool) {
	userID := auth.GetUserID(c)
	if userID == auth.DefaultUserID || pc.users == nil {
		return AccountView{}, false
	}

	user, err := pc.users.GetUserByID(userID)
	if err != nil {
		return AccountView{}, false
	}

	view := AccountView{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        user.Role,
		HasAPIToken: user.TokenHash != "",
		MemberSince: user.CreatedAt.Format("2006-01-02"),
	}
	if user.LastLoginAt != nil {
		view.LastLoginAt = user.LastLoginAt.Format("2006-01-02 15:04")
	}
	return view, true
}

// page builds the data every guarded page shares and drains pending toasts.
func (pc *PagesController) page(c *gin.Context, title string, data gin.H) gin.H {
	data["Title"] = title
	data["Auth"] = GetAuthTemplateData(c)
	data["Support"] = pc.support
	data["Toasts"] = pc.notifier.Pop(c.Request)
	return data
}

func (pc *PagesController) render(c *gin.Context, status int, name string, data gin.H) {
	if !pc.html || wantsJSON(c) {
		c.JSON(status, data)
		return
	}
	c.HTML(status, name, data)
}
