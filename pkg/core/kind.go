package core

// PageKind tags the closed set of PageView variants.
type PageKind int

const (
	PageStatic PageKind = iota
	PageDynamic
	PageRepeater
)

func (k PageKind) String() string {
	switch k {
	case PageStatic:
		return "static"
	case PageDynamic:
		return "dynamic"
	case PageRepeater:
		return "repeater"
	}
	return "unknown"
}

// FileKind classifies a tracked source file.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindContentItem
	KindDataItem
	KindStaticPageView
	KindDynamicPageView
	KindRepeaterPageView
	KindTemplatePartial
)

func (k FileKind) String() string {
	switch k {
	case KindContentItem:
		return "content-item"
	case KindDataItem:
		return "data-item"
	case KindStaticPageView:
		return "static-pageview"
	case KindDynamicPageView:
		return "dynamic-pageview"
	case KindRepeaterPageView:
		return "repeater-pageview"
	case KindTemplatePartial:
		return "template-partial"
	}
	return "unknown"
}

// IsPageView reports whether files of this kind are compiled on their own.
func (k FileKind) IsPageView() bool {
	return k == KindStaticPageView || k == KindDynamicPageView || k == KindRepeaterPageView
}

// IsCollectable reports whether files of this kind belong to a Dynamic PageView.
func (k FileKind) IsCollectable() bool {
	return k == KindContentItem || k == KindDataItem
}

// FileKindOf maps a page kind onto the tracker's file kind.
func FileKindOf(k PageKind) FileKind {
	switch k {
	case PageStatic:
		return KindStaticPageView
	case PageDynamic:
		return KindDynamicPageView
	case PageRepeater:
		return KindRepeaterPageView
	}
	return KindUnknown
}
