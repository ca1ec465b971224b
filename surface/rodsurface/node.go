package rodsurface

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/canvas/surface"
)

type node struct {
	el     *rod.Element
	stable string
	canvas string
	tag    string
}

func describe(ctx context.Context, el *rod.Element) (*node, error) {
	res, err := el.Context(ctx).Eval(`(s, c) => JSON.stringify([this.getAttribute(s) || '', this.getAttribute(c) || '', this.tagName.toLowerCase()])`,
		surface.StableAttr, surface.CanvasAttr)
	if err != nil {
		return nil, fmt.Errorf("rodsurface: describe: %w", err)
	}
	var d [3]string
	if err := json.Unmarshal([]byte(res.Value.Str()), &d); err != nil {
		return nil, fmt.Errorf("rodsurface: decode describe: %w", err)
	}
	return &node{el: el, stable: d[0], canvas: d[1], tag: d[2]}, nil
}

func (n *node) StableID() string { return n.stable }
func (n *node) CanvasID() string { return n.canvas }
func (n *node) Tag() string      { return n.tag }

func (n *node) Attached(ctx context.Context) bool {
	res, err := n.el.Context(ctx).Eval(`() => this.isConnected`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// eval runs js on the element after checking it is still in the document.
func (n *node) eval(ctx context.Context, js string, args ...any) (string, error) {
	if !n.Attached(ctx) {
		return "", surface.ErrDetached
	}
	res, err := n.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", fmt.Errorf("rodsurface: eval: %w", err)
	}
	return res.Value.Str(), nil
}

func (n *node) Text(ctx context.Context) (string, error) {
	return n.eval(ctx, `() => this.textContent`)
}

func (n *node) SetText(ctx context.Context, text string) error {
	_, err := n.eval(ctx, `(t) => { this.textContent = t; }`, text)
	return err
}

func (n *node) InnerHTML(ctx context.Context) (string, error) {
	return n.eval(ctx, `() => this.innerHTML`)
}

func (n *node) SetHTML(ctx context.Context, markup string) error {
	_, err := n.eval(ctx, `(h) => { this.innerHTML = h; }`, markup)
	return err
}

func (n *node) Attr(ctx context.Context, name string) (string, bool, error) {
	out, err := n.eval(ctx, `(k) => JSON.stringify([this.hasAttribute(k), this.getAttribute(k) || ''])`, name)
	if err != nil {
		return "", false, err
	}
	var pair [2]json.RawMessage
	if err := json.Unmarshal([]byte(out), &pair); err != nil {
		return "", false, fmt.Errorf("rodsurface: decode attr: %w", err)
	}
	var has bool
	var val string
	if err := json.Unmarshal(pair[0], &has); err != nil {
		return "", false, err
	}
	if err := json.Unmarshal(pair[1], &val); err != nil {
		return "", false, err
	}
	return val, has, nil
}

func (n *node) SetAttr(ctx context.Context, name, value string) error {
	_, err := n.eval(ctx, `(k, v) => { this.setAttribute(k, v); }`, name, value)
	return err
}

func (n *node) RemoveAttr(ctx context.Context, name string) error {
	_, err := n.eval(ctx, `(k) => { this.removeAttribute(k); }`, name)
	return err
}

const setStylesJS = `(attr, styles) => {
	const prev = (this.getAttribute(attr) || '').split(';')
		.map(d => d.split(':')[0].trim()).filter(Boolean);
	for (const k of prev) this.style.removeProperty(k);
	const keys = Object.keys(styles || {}).sort();
	for (const k of keys) this.style.setProperty(k, styles[k]);
	if (keys.length) {
		this.setAttribute(attr, keys.map(k => k + ':' + styles[k] + ';').join(''));
	} else {
		this.removeAttribute(attr);
	}
}`

func (n *node) SetStyles(ctx context.Context, styles map[string]string) error {
	if styles == nil {
		styles = map[string]string{}
	}
	_, err := n.eval(ctx, setStylesJS, surface.StylesAttr, styles)
	return err
}

func (n *node) ComputedStyle(ctx context.Context, props []string) (map[string]string, error) {
	out, err := n.eval(ctx, `(props) => {
		const cs = window.getComputedStyle(this);
		const o = {};
		for (const p of props) o[p] = cs.getPropertyValue(p);
		return JSON.stringify(o);
	}`, props)
	if err != nil {
		return nil, err
	}
	styles := make(map[string]string, len(props))
	if err := json.Unmarshal([]byte(out), &styles); err != nil {
		return nil, fmt.Errorf("rodsurface: decode computed style: %w", err)
	}
	return styles, nil
}

func (n *node) Rect(ctx context.Context) (surface.Rect, error) {
	out, err := n.eval(ctx, `() => {
		const r = this.getBoundingClientRect();
		return JSON.stringify({x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height});
	}`)
	if err != nil {
		return surface.Rect{}, err
	}
	var r surface.Rect
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		return surface.Rect{}, fmt.Errorf("rodsurface: decode rect: %w", err)
	}
	return r, nil
}
