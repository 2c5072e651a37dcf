//go:build integration

package rod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarogrud/ctrlup-aht/internal/application/port/output"
	"github.com/svarogrud/ctrlup-aht/internal/domain/entity"
)

const (
	loginHTML = `<!DOCTYPE html>
<html>
<head><title>Login</title></head>
<body>
	<div class="login_container">
		<input data-test="username" id="user-name" type="text" />
		<input id="password" name="password" type="password" />
		<button id="login-button">Login</button>
		<button id="disabled" disabled>Nope</button>
		<span id="hidden" style="display:none">secret</span>
		<a href="#about"> About </a>
	</div>
	<div id="overlay-target">
		<button id="covered">Covered</button>
		<div style="position:fixed;top:0;left:0;width:100%;height:100%;background:white"></div>
	</div>
	<div id="result"></div>
	<script>
		document.getElementById('login-button').addEventListener('click', function() {
			document.getElementById('result').textContent = 'Clicked!';
		});
	</script>
</body>
</html>`

	inventoryHTML = `<!DOCTYPE html>
<html>
<body>
	<div class="inventory_list">
		<div data-test="inventory-item"><div data-test="inventory-item-name">Backpack</div></div>
		<div data-test="inventory-item"><div data-test="inventory-item-name">Bike Light</div></div>
	</div>
</body>
</html>`
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Headless = true

	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func serve(t *testing.T, body string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func withTimeout(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDriver_NavigateAndCurrentURL(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	url := serve(t, loginHTML)

	require.NoError(t, d.Navigate(ctx, url))

	current, err := d.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, url+"/", current)
}

func TestDriver_FindElements(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	require.NoError(t, d.Navigate(ctx, serve(t, loginHTML)))

	locators := []entity.Locator{
		entity.ClassName("login_container"),
		entity.XPath(`//input[@data-test="username"]`),
		entity.ID("password"),
		{Strategy: entity.ByName, Value: "password"},
		{Strategy: entity.ByTagName, Value: "button"},
		{Strategy: entity.ByLinkText, Value: "About"},
	}
	for _, loc := range locators {
		found, err := d.FindElements(ctx, loc)
		require.NoError(t, err, loc.String())
		assert.NotEmpty(t, found, loc.String())
	}

	none, err := d.FindElements(ctx, entity.ID("nonexistent"))
	require.NoError(t, err)
	assert.Empty(t, none, "lookups do not wait or fail on absence")
}

func TestDriver_ScopedLookup(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	require.NoError(t, d.Navigate(ctx, serve(t, inventoryHTML)))

	items, err := d.FindElements(ctx, entity.XPath(`//*[@data-test="inventory-item"]`))
	require.NoError(t, err)
	require.Len(t, items, 2)

	names, err := items[1].FindElements(ctx, entity.XPath(`.//*[@data-test="inventory-item-name"]`))
	require.NoError(t, err)
	require.Len(t, names, 1)

	text, err := names[0].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bike Light", text)
}

func TestDriver_ElementState(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	require.NoError(t, d.Navigate(ctx, serve(t, loginHTML)))

	first := func(loc entity.Locator) output.ElementPort {
		found, err := d.FindElements(ctx, loc)
		require.NoError(t, err)
		require.NotEmpty(t, found)
		return found[0]
	}

	visible, err := first(entity.ID("hidden")).Displayed(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	enabled, err := first(entity.ID("disabled")).Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = first(entity.ID("login-button")).Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	err = first(entity.ID("covered")).Interactable(ctx)
	assert.ErrorIs(t, err, output.ErrNotInteractable)
}

func TestDriver_InputAndClick(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	require.NoError(t, d.Navigate(ctx, serve(t, loginHTML)))

	found, err := d.FindElements(ctx, entity.ID("password"))
	require.NoError(t, err)
	field := found[0]
	require.NoError(t, field.SendKeys(ctx, "old"))
	require.NoError(t, field.Clear(ctx))
	require.NoError(t, field.SendKeys(ctx, "secret_sauce"))

	value, err := d.page.MustElement("#password").Property("value")
	require.NoError(t, err)
	assert.Equal(t, "secret_sauce", value.String())

	found, err = d.FindElements(ctx, entity.ID("login-button"))
	require.NoError(t, err)
	require.NoError(t, found[0].Click(ctx))

	assert.Equal(t, "Clicked!", d.page.MustElement("#result").MustText())
}

func TestDriver_ScreenshotAndSource(t *testing.T) {
	ctx := withTimeout(t)
	d := newTestDriver(t)
	require.NoError(t, d.Navigate(ctx, serve(t, loginHTML)))

	img, err := d.Screenshot(ctx)
	require.NoError(t, err)
	assert.Greater(t, len(img), 100)
	assert.Equal(t, []byte{0xFF, 0xD8}, img[:2], "jpeg magic")

	src, err := d.PageSource(ctx)
	require.NoError(t, err)
	assert.Contains(t, src, "login_container")
}

func TestDriver_CloseTwice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headless = true
	d, err := New(context.Background(), cfg)
	require.NoError(t, err)

	assert.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}
