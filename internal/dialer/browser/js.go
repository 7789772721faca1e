package browser

// In-page functions evaluated with the target element as `this`. They run in
// the element's own frame, so prototype lookups resolve against that frame's
// globals rather than the top-level window.

// rectJS returns the rendered bounding box.
const rectJS = `() => {
	const r = this.getBoundingClientRect();
	return { x: r.x, y: r.y, width: r.width, height: r.height };
}`

// nativeSetValueJS writes through the prototype's value setter. React and
// similar frameworks shadow the instance property to track edits; calling
// the prototype setter makes the change visible to their input handlers.
const nativeSetValueJS = `(value) => {
	const proto = this instanceof HTMLTextAreaElement
		? HTMLTextAreaElement.prototype
		: HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (!desc || typeof desc.set !== 'function') {
		return false;
	}
	desc.set.call(this, value);
	return true;
}`

const dispatchJS = `(types) => {
	for (const type of types) {
		this.dispatchEvent(new Event(type, { bubbles: true }));
	}
}`

const valueJS = `() => typeof this.value === 'string' ? this.value : ''`

const clickJS = `() => this.click()`

const textJS = `() => this.innerText || this.textContent || ''`

const locationJS = `() => location.href`
