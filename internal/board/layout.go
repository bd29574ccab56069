package board

// MobileBreakpoint is the viewport width at or below which the mobile dialog size applies.
const MobileBreakpoint = 600

// DialogSize bounds the add dialog, in viewport width units.
type DialogSize struct {
	MaxHeight int `json:"maxHeight"`
	MaxWidth  int `json:"maxWidth"`
}

var (
	MobileDialog  = DialogSize{MaxHeight: 300, MaxWidth: 500}
	DesktopDialog = DialogSize{MaxHeight: 600, MaxWidth: 300}
)

// DialogLayout bundles the dialog size with the draft item it opens on.
type DialogLayout struct {
	Mobile bool       `json:"mobile"`
	Size   DialogSize `json:"size"`
	Data   Draft      `json:"data"`
}

// LayoutFor picks the mobile or desktop dialog size and attaches draft.
func LayoutFor(isMobile bool, draft Draft) DialogLayout {
	size := DesktopDialog
	if isMobile {
		size = MobileDialog
	}
	return DialogLayout{
		Mobile: isMobile,
		Size:   size,
		Data:   draft,
	}
}
