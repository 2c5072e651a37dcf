package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/application/port/output/outputtest"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

const shortTimeout = 150 * time.Millisecond

var (
	usernameField = entity.XPath(`//input[@data-test="username"]`)
	loginButton   = entity.ID("login-button")
	missing       = entity.ID("nonexistent")
)

func newTestBrowser(d *outputtest.Driver) *Browser {
	return NewBrowser(d, logger.NewNop(), BrowserConfig{
		GlobalTimeout:   shortTimeout,
		PollInterval:    5 * time.Millisecond,
		MaxPollInterval: 20 * time.Millisecond,
	})
}

func TestNewBrowser_Defaults(t *testing.T) {
	b := NewBrowser(outputtest.NewDriver(), logger.NewNop(), BrowserConfig{})

	assert.Equal(t, defaultGlobalTimeout, b.cfg.GlobalTimeout)
	assert.Equal(t, defaultPageLoadTimeout, b.cfg.PageLoadTimeout)
	assert.Equal(t, defaultPollInterval, b.cfg.PollInterval)
	assert.Equal(t, defaultPollInterval, b.cfg.MaxPollInterval)
}

func TestBrowser_Open(t *testing.T) {
	ctx := context.Background()
	d := outputtest.NewDriver()
	d.Redirects["https://www.saucedemo.com"] = "https://www.saucedemo.com/"
	d.Redirects["https://example.com/old"] = "https://example.com/new"
	b := newTestBrowser(d)

	assert.True(t, b.Open(ctx, "https://www.saucedemo.com"), "trailing slash is ignored")
	assert.Equal(t, "https://www.saucedemo.com/", b.CurrentURL(ctx))
	assert.False(t, b.Open(ctx, "https://example.com/old"), "redirect elsewhere is not a match")

	d.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.False(t, b.Open(ctx, "https://nowhere.invalid"))
}

func TestBrowser_OpenSlowPage(t *testing.T) {
	ctx := context.Background()
	d := outputtest.NewDriver()
	d.LoadTime = 3 * shortTimeout

	b := newTestBrowser(d)
	assert.True(t, b.Open(ctx, "https://www.saucedemo.com/"), "page load is not bound by the wait timeout")

	b = NewBrowser(d, logger.NewNop(), BrowserConfig{
		GlobalTimeout:   time.Second,
		PageLoadTimeout: shortTimeout,
	})
	assert.False(t, b.Open(ctx, "https://example.com/"))
	assert.Equal(t, "https://www.saucedemo.com/", b.CurrentURL(ctx))
}

func TestBrowser_IsPresent(t *testing.T) {
	ctx := context.Background()
	d := outputtest.NewDriver().
		Add(loginButton, outputtest.NewElement("Login")).
		Delay(loginButton, 3)
	b := newTestBrowser(d)

	assert.True(t, b.IsPresent(ctx, loginButton, 0), "element rendered after a few polls")
	assert.GreaterOrEqual(t, d.Lookups(loginButton), 4)

	start := time.Now()
	assert.False(t, b.IsPresent(ctx, missing, 50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second, "wait is bounded by the explicit timeout")
}

func TestBrowser_IsPresent_DriverErrorNeverRaises(t *testing.T) {
	d := outputtest.NewDriver().Add(loginButton, outputtest.NewElement("Login"))
	d.FindErr = errors.New("session deleted")
	b := newTestBrowser(d)

	assert.False(t, b.IsPresent(context.Background(), loginButton, 0))
	assert.Equal(t, 1, d.Lookups(loginButton), "non-lookup driver errors stop the wait")
}

func TestBrowser_FindAll(t *testing.T) {
	ctx := context.Background()
	items := entity.XPath(`//*[@data-test="inventory-item"]`)
	d := outputtest.NewDriver().Add(items,
		outputtest.NewElement("a"), outputtest.NewElement("b"), outputtest.NewElement("c"))
	b := newTestBrowser(d)

	found := b.FindAll(ctx, items, 0)
	require.Len(t, found, 3)
	text, err := found[1].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", text, "order is preserved")

	none := b.FindAll(ctx, missing, 30*time.Millisecond)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestBrowser_FindVisible(t *testing.T) {
	ctx := context.Background()
	hidden := outputtest.NewElement("secret")
	hidden.Hidden = true
	d := outputtest.NewDriver().
		Add(loginButton, outputtest.NewElement("Login")).
		Add(entity.ID("hidden"), hidden)
	b := newTestBrowser(d)

	el, err := b.FindVisible(ctx, loginButton, 0)
	require.NoError(t, err)
	require.NotNil(t, el)

	_, err = b.FindVisible(ctx, entity.ID("hidden"), 30*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, entity.FailureTimeout, entity.KindOf(err))

	var ie *entity.InteractionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, entity.ID("hidden"), ie.Locator)
	assert.Equal(t, "find visible", ie.Op)
}

func TestBrowser_EnterText(t *testing.T) {
	ctx := context.Background()
	field := outputtest.NewElement("")
	field.Value = "previous"
	d := outputtest.NewDriver().Add(usernameField, field)
	b := newTestBrowser(d)

	assert.True(t, b.EnterText(ctx, usernameField, "standard_user", 0))
	assert.Equal(t, "standard_user", field.Value, "prior content is cleared")

	field.SendErr = output.ErrNotInteractable
	assert.False(t, b.EnterText(ctx, usernameField, "x", 0))

	assert.False(t, b.EnterText(ctx, missing, "x", 30*time.Millisecond))
}

func TestBrowser_ReadText(t *testing.T) {
	ctx := context.Background()
	banner := entity.XPath(`//h3[@data-test="error"]`)
	d := outputtest.NewDriver().Add(banner, outputtest.NewElement("Epic sadface"))
	b := newTestBrowser(d)

	assert.Equal(t, "Epic sadface", b.ReadText(ctx, banner, 0))
	assert.Equal(t, "", b.ReadText(ctx, missing, 30*time.Millisecond))
}

func TestBrowser_Click(t *testing.T) {
	ctx := context.Background()

	t.Run("clickable", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		b := newTestBrowser(outputtest.NewDriver().Add(loginButton, btn))

		assert.True(t, b.Click(ctx, loginButton, 0))
		assert.Equal(t, 1, btn.Clicks())
	})

	t.Run("becomes enabled while waiting", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		btn.Disabled = true
		d := outputtest.NewDriver().Add(loginButton, btn)
		b := newTestBrowser(d)

		go func() {
			time.Sleep(20 * time.Millisecond)
			btn.Update(func(e *outputtest.Element) { e.Disabled = false })
		}()

		assert.True(t, b.Click(ctx, loginButton, 0))
		assert.Equal(t, 1, btn.Clicks())
	})

	t.Run("covered", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		btn.Covered = true
		b := newTestBrowser(outputtest.NewDriver().Add(loginButton, btn))

		assert.False(t, b.Click(ctx, loginButton, 30*time.Millisecond))
		assert.Zero(t, btn.Clicks())

		err := b.click(ctx, b.driver, loginButton, 30*time.Millisecond)
		assert.Equal(t, entity.FailureBlocked, entity.KindOf(err))
	})

	t.Run("disabled", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		btn.Disabled = true
		b := newTestBrowser(outputtest.NewDriver().Add(loginButton, btn))

		err := b.click(ctx, b.driver, loginButton, 30*time.Millisecond)
		assert.Equal(t, entity.FailureTimeout, entity.KindOf(err))
	})

	t.Run("stale", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		btn.Stale = true
		b := newTestBrowser(outputtest.NewDriver().Add(loginButton, btn))

		err := b.click(ctx, b.driver, loginButton, 30*time.Millisecond)
		assert.Equal(t, entity.FailureStale, entity.KindOf(err))
	})

	t.Run("click rejected", func(t *testing.T) {
		btn := outputtest.NewElement("Login")
		btn.ClickErr = errors.New("target closed")
		b := newTestBrowser(outputtest.NewDriver().Add(loginButton, btn))

		assert.False(t, b.Click(ctx, loginButton, 0))
		err := b.click(ctx, b.driver, loginButton, 0)
		assert.Equal(t, entity.FailureDriver, entity.KindOf(err))
	})
}

func TestBrowser_ScopedLookups(t *testing.T) {
	ctx := context.Background()
	name := entity.XPath(`.//*[@data-test="inventory-item-name"]`)
	add := entity.XPath(`.//button[starts-with(@data-test, "add-to-cart")]`)
	btn := outputtest.NewElement("Add to cart")
	item := outputtest.NewElement("").
		WithChild(name, outputtest.NewElement("Sauce Labs Backpack")).
		WithChild(add, btn)
	b := newTestBrowser(outputtest.NewDriver())

	text, err := b.TextWithin(ctx, item, name)
	require.NoError(t, err)
	assert.Equal(t, "Sauce Labs Backpack", text)

	_, err = b.TextWithin(ctx, item, missing)
	assert.Equal(t, entity.FailureNotFound, entity.KindOf(err))
	assert.ErrorIs(t, err, output.ErrNoSuchElement)

	require.NoError(t, b.ClickWithin(ctx, item, add, 0))
	assert.Equal(t, 1, btn.Clicks())
}

func TestBrowser_Quit_SwallowsErrors(t *testing.T) {
	d := outputtest.NewDriver()
	d.CloseErr = errors.New("chrome not reachable")
	b := newTestBrowser(d)

	assert.NotPanics(t, b.Quit)
	assert.Equal(t, 1, d.Closed())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want entity.FailureKind
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, entity.FailureTimeout},
		{"not found", output.ErrNoSuchElement, entity.FailureNotFound},
		{"stale", output.ErrStaleElement, entity.FailureStale},
		{"blocked", output.ErrNotInteractable, entity.FailureBlocked},
		{"blocked at deadline", errors.Join(context.DeadlineExceeded, output.ErrNotInteractable), entity.FailureBlocked},
		{"other", errors.New("boom"), entity.FailureDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}
