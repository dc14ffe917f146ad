package page

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrUnknownAccount = errors.New("page: no page open for account")

var _ Actuator = (*Browser)(nil)

type BrowserConfig struct {
	// RemoteURL is a devtools websocket/http endpoint. Empty starts a
	// local Chrome.
	RemoteURL   string
	Headless    bool
	RatePerSec  float64
	Retry       Retry
	StepTimeout time.Duration
	EventBuffer int
}

// Browser is the chromedp-backed Actuator. Each account gets its own
// browser context, so cookies and sessions never leak between accounts.
type Browser struct {
	log   *zap.Logger
	cfg   BrowserConfig
	alloc context.CancelFunc
	root  context.Context
	stop  context.CancelFunc

	events chan Event
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	tabs map[string]*tab
}

type tab struct {
	accountID string
	ctx       context.Context
	cancel    context.CancelFunc
	limiter   *rate.Limiter

	// ready is closed once the devtools target exists; attachErr is set
	// before that.
	ready     chan struct{}
	attachErr error

	mu  sync.Mutex
	url string
}

// await blocks until the tab is attached or closed.
func (t *tab) await() error {
	select {
	case <-t.ready:
		return t.attachErr
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

func (t *tab) setURL(u string) {
	t.mu.Lock()
	t.url = u
	t.mu.Unlock()
}

func (t *tab) currentURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// NewBrowser connects to (or launches) Chrome. The returned Browser lives
// until Shutdown or until ctx is cancelled.
func NewBrowser(ctx context.Context, cfg BrowserConfig, log *zap.Logger) (*Browser, error) {
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetry()
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 20 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}

	var (
		allocCtx context.Context
		alloc    context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, alloc = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
		allocCtx, alloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	sugar := log.Sugar()
	root, stop := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)
	if err := chromedp.Run(root); err != nil {
		stop()
		alloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Browser{
		log:    log,
		cfg:    cfg,
		alloc:  alloc,
		root:   root,
		stop:   stop,
		events: make(chan Event, cfg.EventBuffer),
		done:   make(chan struct{}),
		tabs:   map[string]*tab{},
	}, nil
}

func (b *Browser) Events() <-chan Event { return b.events }

// Shutdown closes every page and the browser.
func (b *Browser) Shutdown() {
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		for id, t := range b.tabs {
			t.cancel()
			delete(b.tabs, id)
		}
		b.mu.Unlock()
		b.stop()
		b.alloc()
	})
}

func (b *Browser) Open(accountID, startURL string) error {
	b.mu.Lock()
	if _, ok := b.tabs[accountID]; ok {
		b.mu.Unlock()
		return fmt.Errorf("page: account %s already open", accountID)
	}
	ctx, cancel := chromedp.NewContext(b.root, chromedp.WithNewBrowserContext())
	t := &tab{
		accountID: accountID,
		ctx:       ctx,
		cancel:    cancel,
		limiter:   rate.NewLimiter(rate.Limit(b.cfg.RatePerSec), 1),
		ready:     make(chan struct{}),
	}
	b.tabs[accountID] = t
	b.mu.Unlock()

	b.listen(t)
	b.log.Info("page opened", zap.String("account", accountID), zap.String("url", startURL))
	go func() {
		b.attach(t)
		b.run(t, "navigate", chromedp.Navigate(startURL))
	}()
	return nil
}

// attach creates the tab's target. The first Run on a chromedp context
// binds the target's message loop to that context, so it must be t.ctx
// itself and never a per-step timeout.
func (b *Browser) attach(t *tab) {
	err := chromedp.Run(t.ctx)
	if err != nil && t.ctx.Err() == nil {
		b.log.Error("attach page", zap.String("account", t.accountID), zap.Error(err))
	}
	t.attachErr = err
	close(t.ready)
}

func (b *Browser) Close(accountID string) {
	b.mu.Lock()
	t, ok := b.tabs[accountID]
	delete(b.tabs, accountID)
	b.mu.Unlock()
	if ok {
		t.cancel()
		b.log.Info("page closed", zap.String("account", accountID))
	}
}

func (b *Browser) Navigate(accountID, target string) error {
	t, err := b.tab(accountID)
	if err != nil {
		return err
	}
	go b.run(t, "navigate", chromedp.Navigate(target))
	return nil
}

func (b *Browser) Execute(accountID, script string) error {
	t, err := b.tab(accountID)
	if err != nil {
		return err
	}
	go b.run(t, "execute", chromedp.Evaluate(script, nil))
	return nil
}

func (b *Browser) Foreground(accountID string) error {
	t, err := b.tab(accountID)
	if err != nil {
		return err
	}
	go b.run(t, "foreground", cdppage.BringToFront())
	return nil
}

func (b *Browser) Fetch(req Request) error {
	t, err := b.tab(req.AccountID)
	if err != nil {
		return err
	}
	go b.fetch(t, req)
	return nil
}

func (b *Browser) tab(accountID string) (*tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, accountID)
	}
	return t, nil
}

func (b *Browser) listen(t *tab) {
	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *cdppage.EventJavascriptDialogOpening:
			if alert, ok := dialogEvent(t.accountID, ev); ok {
				recordAlert()
				b.emit(alert)
			} else {
				b.log.Debug("accepting dialog", zap.String("account", t.accountID),
					zap.String("type", ev.Type.String()), zap.String("text", ev.Message))
			}
			go func() {
				if err := chromedp.Run(t.ctx, cdppage.HandleJavaScriptDialog(true)); err != nil && t.ctx.Err() == nil {
					b.log.Warn("dismiss dialog", zap.String("account", t.accountID), zap.Error(err))
				}
			}()
		case *cdppage.EventFrameNavigated:
			if ev.Frame != nil && ev.Frame.ParentID == "" {
				t.setURL(ev.Frame.URL)
			}
		case *cdppage.EventLoadEventFired:
			b.emit(Event{Kind: EventNavigated, AccountID: t.accountID, URL: t.currentURL()})
		case *runtime.EventExceptionThrown:
			b.log.Debug("page exception", zap.String("account", t.accountID), zap.String("text", ev.ExceptionDetails.Text))
		}
	})
}

// dialogEvent turns an alert() into an EventAlert. Confirm, prompt and
// beforeunload dialogs are only accepted; they never report an outcome.
func dialogEvent(accountID string, ev *cdppage.EventJavascriptDialogOpening) (Event, bool) {
	if ev.Type != cdppage.DialogTypeAlert {
		return Event{}, false
	}
	return Event{Kind: EventAlert, AccountID: accountID, URL: ev.URL, Text: ev.Message}, true
}

// emit never blocks the devtools event loop; a full channel hands the
// event to a goroutine.
func (b *Browser) emit(ev Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	default:
		go func() {
			select {
			case b.events <- ev:
			case <-b.done:
			}
		}()
	}
}

func (b *Browser) run(t *tab, what string, actions ...chromedp.Action) {
	if err := t.await(); err != nil {
		return
	}
	if err := t.limiter.Wait(t.ctx); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(t.ctx, b.cfg.StepTimeout)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil && t.ctx.Err() == nil {
		b.log.Warn("page action failed", zap.String("account", t.accountID), zap.String("action", what), zap.Error(err))
	}
}

type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (b *Browser) fetch(t *tab, req Request) {
	var res fetchResult
	script, err := fetchScript(req)
	attempts := 0
	if err == nil {
		err = t.await()
	}
	if err == nil {
		attempts, err = b.cfg.Retry.Do(t.ctx, func(ctx context.Context) error {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
			step, cancel := context.WithTimeout(ctx, b.cfg.StepTimeout)
			defer cancel()
			res = fetchResult{}
			if err := chromedp.Run(step, chromedp.Evaluate(script, &res, awaitPromise)); err != nil {
				if ctx.Err() != nil {
					return err
				}
				return &TransportError{Reason: err.Error()}
			}
			return CheckBody(res.Status, res.Body)
		})
	}
	if t.ctx.Err() != nil {
		return
	}
	recordFetch(req.Kind, attempts, err)
	if err != nil {
		b.log.Warn("fetch failed",
			zap.String("account", req.AccountID), zap.String("kind", req.Kind.String()),
			zap.Int("attempts", attempts), zap.Error(err))
	}
	b.emit(Event{
		Kind:      EventFetched,
		AccountID: req.AccountID,
		URL:       req.URL,
		Fetch:     &Response{Request: req, Status: res.Status, Body: res.Body, Attempts: attempts, Err: err},
	})
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// fetchScript posts req.Form from inside the page so the account's cookies
// ride along.
func fetchScript(req Request) (string, error) {
	u, err := jsString(req.URL)
	if err != nil {
		return "", err
	}
	body, err := jsString(req.Form.Encode())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(async () => {
  const res = await fetch(%s, {
    method: 'POST',
    credentials: 'include',
    headers: {
      'Content-Type': 'application/x-www-form-urlencoded; charset=UTF-8',
      'X-Requested-With': 'XMLHttpRequest'
    },
    body: %s
  });
  return { status: res.status, body: await res.text() };
})()`, u, body), nil
}

// jsString quotes s as a JS string literal. HTML escaping is off so & in a
// query string stays readable in the evaluated source.
func jsString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
