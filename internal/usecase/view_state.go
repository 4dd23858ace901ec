package usecase

import (
	"sync"

	"github.com/vitos/perps_sync/internal/domain"
)

// ViewState is the session-scoped, UI-facing state container. It is created
// once at process start, injected into its consumers and never torn down.
// Only the presentation layer and the feed first-data callback mutate it.
type ViewState struct {
	mu            sync.RWMutex
	globalLoading bool
	selected      *domain.InstrumentSnapshot
	detailOpen    bool
	scrollLocked  bool
}

func NewViewState() *ViewState {
	return &ViewState{globalLoading: true}
}

func (v *ViewState) GlobalLoading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.globalLoading
}

func (v *ViewState) SetGlobalLoading(loading bool) {
	v.mu.Lock()
	v.globalLoading = loading
	v.mu.Unlock()
}

// OpenDetail selects an instrument and opens the detail panel; the scroll
// lock mirrors the panel state.
func (v *ViewState) OpenDetail(instrument domain.InstrumentSnapshot) {
	v.mu.Lock()
	v.selected = &instrument
	v.detailOpen = true
	v.scrollLocked = true
	v.mu.Unlock()
}

// CloseDetail clears the selection together with the panel flag.
func (v *ViewState) CloseDetail() {
	v.mu.Lock()
	v.selected = nil
	v.detailOpen = false
	v.scrollLocked = false
	v.mu.Unlock()
}

func (v *ViewState) Selected() (domain.InstrumentSnapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.selected == nil {
		return domain.InstrumentSnapshot{}, false
	}
	return *v.selected, true
}

func (v *ViewState) DetailOpen() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.detailOpen
}

func (v *ViewState) ScrollLocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.scrollLocked
}
