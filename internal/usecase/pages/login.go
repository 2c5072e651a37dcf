package pages

import (
	"context"
	"time"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/input"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

var _ input.LoginPage = (*LoginPage)(nil)

var loginElements = struct {
	pageMarker  entity.Locator
	username    entity.Locator
	password    entity.Locator
	loginButton entity.Locator
	errorBanner entity.Locator
}{
	pageMarker:  entity.ClassName("login_container"),
	username:    entity.XPath(`//input[@data-test="username"]`),
	password:    entity.ID("password"),
	loginButton: entity.ID("login-button"),
	errorBanner: entity.XPath(`//h3[@data-test="error"]`),
}

// errorBannerTimeout is short: a rejected login renders the banner at once.
const errorBannerTimeout = 500 * time.Millisecond

type LoginPage struct {
	browser Interactor
}

func NewLoginPage(browser Interactor) *LoginPage {
	return &LoginPage{browser: browser}
}

func (p *LoginPage) IsPageOpened(ctx context.Context, timeout time.Duration) entity.Outcome[entity.None] {
	return opened(ctx, p.browser, loginElements.pageMarker, timeout, "Login")
}

// Login fills the non-empty credentials and optionally submits. A banner shown
// after submitting is a business rejection and its text becomes the failure.
func (p *LoginPage) Login(ctx context.Context, creds entity.Credentials) entity.Outcome[entity.None] {
	if creds.Username != "" && !p.browser.EnterText(ctx, loginElements.username, creds.Username, 0) {
		return entity.Fail[entity.None]("Failed to enter username")
	}
	if creds.Password != "" && !p.browser.EnterText(ctx, loginElements.password, creds.Password, 0) {
		return entity.Fail[entity.None]("Failed to enter password")
	}
	if !creds.ClickLogin {
		return entity.Done()
	}
	if !p.browser.Click(ctx, loginElements.loginButton, 0) {
		return entity.Fail[entity.None]("Failed to click login button")
	}

	if p.browser.IsPresent(ctx, loginElements.errorBanner, errorBannerTimeout) {
		if msg := p.browser.ReadText(ctx, loginElements.errorBanner, errorBannerTimeout); msg != "" {
			return entity.Fail[entity.None](msg)
		}
	}
	return entity.Done()
}
