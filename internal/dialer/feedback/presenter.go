package feedback

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"github.com/grez-lucas/dialer-helper/internal/dialer/fill"
)

// RenderFunc draws a toast. It returns an error when the target document
// cannot be written to.
type RenderFunc func(ctx context.Context, t Toast) error

// Presenter turns fill outcomes into toasts.
type Presenter struct {
	render RenderFunc
	logger *zap.Logger
}

var _ fill.Presenter = (*Presenter)(nil)

func NewPresenter(render RenderFunc, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{render: render, logger: logger}
}

// NewPagePresenter renders into page, which should be the top-level page of
// the tab so the toast is visible regardless of which frame was filled.
func NewPagePresenter(page *rod.Page, logger *zap.Logger) *Presenter {
	return NewPresenter(PageRenderer(page), logger)
}

func (p *Presenter) Success(ctx context.Context, country, dialCode string) error {
	return p.show(ctx, NewSuccessToast(country, dialCode))
}

func (p *Presenter) Failure(ctx context.Context) error {
	return p.show(ctx, NewFailureToast())
}

func (p *Presenter) show(ctx context.Context, t Toast) error {
	if err := p.render(ctx, t); err != nil {
		return &fill.FillError{Operation: "Feedback", Cause: fill.ErrFeedbackBlocked, Details: err.Error()}
	}
	p.logger.Debug("Toast displayed", zap.String("title", t.Title), zap.Bool("error", t.Error))
	return nil
}

// PageRenderer evaluates the toast script in page. Any toast already on
// screen is replaced.
func PageRenderer(page *rod.Page) RenderFunc {
	return func(ctx context.Context, t Toast) error {
		_, err := page.Context(ctx).Eval(toastJS, t, t.Dismiss.Milliseconds())
		if err != nil {
			return fmt.Errorf("render toast: %w", err)
		}
		return nil
	}
}

const toastJS = `(t, dismissMs) => {
	const doc = document;
	doc.getElementById('d365-toast')?.remove();
	doc.getElementById('d365-toast-style')?.remove();

	const style = doc.createElement('style');
	style.id = 'd365-toast-style';
	style.textContent = [
		'#d365-toast{position:fixed;top:12px;right:12px;z-index:9999999;display:flex;align-items:stretch;',
		'min-width:320px;max-width:400px;background:#323130;border-radius:4px;',
		'box-shadow:0 6.4px 14.4px 0 rgba(0,0,0,.132),0 1.2px 3.6px 0 rgba(0,0,0,.108);',
		'font-family:Segoe UI,-apple-system,BlinkMacSystemFont,sans-serif;overflow:hidden;',
		'animation:d365ToastIn .3s cubic-bezier(.1,.9,.2,1)}',
		'#d365-toast .toast-accent{width:4px;flex-shrink:0;background:' + t.accent + '}',
		'#d365-toast .toast-content{display:flex;align-items:center;gap:12px;padding:12px 16px;flex:1}',
		'#d365-toast .toast-icon{width:20px;height:20px;flex-shrink:0}',
		'#d365-toast .toast-icon svg{width:20px;height:20px}',
		'#d365-toast .toast-body{flex:1;min-width:0}',
		'#d365-toast .toast-title{font-size:14px;font-weight:600;color:#fff;margin-bottom:2px}',
		'#d365-toast .toast-message{font-size:12px;color:#d2d0ce;display:flex;align-items:center;gap:6px}',
		'#d365-toast .toast-flag{font-size:14px;line-height:1}',
		'#d365-toast.hide{animation:d365ToastOut .2s ease forwards}',
		'@keyframes d365ToastIn{from{opacity:0;transform:translateX(48px)}to{opacity:1;transform:translateX(0)}}',
		'@keyframes d365ToastOut{from{opacity:1;transform:translateX(0)}to{opacity:0;transform:translateX(48px)}}',
	].join('');

	const el = (cls, text) => {
		const n = doc.createElement(cls === 'span' ? 'span' : 'div');
		if (cls !== 'span') n.className = cls;
		if (text !== undefined) n.textContent = text;
		return n;
	};

	const svgNS = 'http://www.w3.org/2000/svg';
	const svg = doc.createElementNS(svgNS, 'svg');
	svg.setAttribute('viewBox', '0 0 24 24');
	svg.setAttribute('fill', 'none');
	const disc = doc.createElementNS(svgNS, 'circle');
	disc.setAttribute('cx', '12');
	disc.setAttribute('cy', '12');
	disc.setAttribute('r', '10');
	disc.setAttribute('fill', t.accent);
	const stroke = doc.createElementNS(svgNS, 'path');
	stroke.setAttribute('d', t.icon);
	stroke.setAttribute('stroke', 'white');
	stroke.setAttribute('stroke-width', '2');
	stroke.setAttribute('stroke-linecap', 'round');
	stroke.setAttribute('stroke-linejoin', 'round');
	svg.append(disc, stroke);
	const icon = el('toast-icon');
	icon.append(svg);

	const toast = doc.createElement('div');
	toast.id = 'd365-toast';
	const content = el('toast-content');
	const body = el('toast-body');
	const message = el('toast-message');
	const flag = el('span', t.flag);
	flag.className = 'toast-flag';
	message.append(flag, el('span', t.message));
	body.append(el('toast-title', t.title), message);
	content.append(icon, body);
	toast.append(el('toast-accent'), content);

	doc.head.appendChild(style);
	doc.body.appendChild(toast);

	setTimeout(() => {
		if (!doc.getElementById('d365-toast')) return;
		toast.classList.add('hide');
		setTimeout(() => { toast.remove(); style.remove(); }, 200);
	}, dismissMs);
}`
