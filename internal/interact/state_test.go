package interact

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/gridviz/internal/grid"
)

var _ = Describe("Handler", func() {
	var (
		h       *Handler
		hovers  []CellEvent
		selects []CellEvent
		cancelH func()
		cancelS func()
	)

	build := func(mode Mode) {
		spec, err := grid.NewSpec(500, 500, 10, 10)
		Expect(err).NotTo(HaveOccurred())
		h, err = New(spec, nil, Options{Mode: mode, Logger: log.New(io.Discard)})
		Expect(err).NotTo(HaveOccurred())
		hovers, selects = nil, nil
		cancelH = h.OnCellHovered(func(e CellEvent) { hovers = append(hovers, e) })
		cancelS = h.OnCellSelected(func(e CellEvent) { selects = append(selects, e) })
	}

	BeforeEach(func() { build(NotifyAll) })

	It("starts idle", func() {
		st := h.State()
		Expect(st.Phase).To(Equal(Idle))
		Expect(st.Hovered).To(BeNil())
		Expect(st.Selected).To(BeNil())
	})

	Context("hovering", func() {
		It("notifies once per cell change", func() {
			h.Handle(Event{Kind: Enter, X: 10, Y: 10})
			h.Handle(Event{Kind: Move, X: 20, Y: 30})
			h.Handle(Event{Kind: Move, X: 60, Y: 30})

			Expect(hovers).To(HaveLen(2))
			Expect(hovers[0].Cell).To(Equal(grid.Cell{Col: 0, Row: 0}))
			Expect(hovers[1].Cell).To(Equal(grid.Cell{Col: 1, Row: 0}))
			Expect(hovers[1].PixelX).To(Equal(60.0))
			Expect(h.State().Phase).To(Equal(Hovering))
		})

		It("returns to idle on leave", func() {
			h.Handle(Event{Kind: Enter, X: 10, Y: 10})
			h.Handle(Event{Kind: Leave})

			_, ok := h.Hovered()
			Expect(ok).To(BeFalse())
			Expect(h.State().Phase).To(Equal(Idle))
			Expect(h.State().HasPointer).To(BeFalse())

			h.Handle(Event{Kind: Enter, X: 10, Y: 10})
			Expect(hovers).To(HaveLen(2))
		})
	})

	Context("selecting", func() {
		It("selects the clicked cell", func() {
			h.Handle(Event{Kind: Down, X: 130, Y: 180})

			Expect(selects).To(HaveLen(1))
			Expect(selects[0].Cell).To(Equal(grid.Cell{Col: 2, Row: 3}))
			c, ok := h.Selected()
			Expect(ok).To(BeTrue())
			Expect(c).To(Equal(grid.Cell{Col: 2, Row: 3}))
			Expect(h.State().Phase).To(Equal(Selected))
		})

		It("keeps the selection across hovers and leave", func() {
			h.Handle(Event{Kind: Down, X: 130, Y: 180})
			h.Handle(Event{Kind: Move, X: 400, Y: 400})
			h.Handle(Event{Kind: Leave})

			st := h.State()
			Expect(st.Phase).To(Equal(Selected))
			Expect(*st.Selected).To(Equal(grid.Cell{Col: 2, Row: 3}))
			Expect(st.Hovered).To(BeNil())
		})

		It("clamps clicks outside the canvas", func() {
			h.Handle(Event{Kind: Down, X: 500, Y: 500})
			Expect(selects[0].Cell).To(Equal(grid.Cell{Col: 9, Row: 9}))
		})

		It("clears the selection", func() {
			h.Handle(Event{Kind: Down, X: 130, Y: 180})
			h.ClearSelection()
			_, ok := h.Selected()
			Expect(ok).To(BeFalse())
			Expect(h.State().Phase).To(Equal(Hovering))
		})
	})

	Context("subscriptions", func() {
		It("stops delivering after cancel", func() {
			cancelH()
			cancelS()
			cancelS()
			h.Handle(Event{Kind: Enter, X: 10, Y: 10})
			h.Handle(Event{Kind: Down, X: 10, Y: 10})
			Expect(hovers).To(BeEmpty())
			Expect(selects).To(BeEmpty())
		})

		It("honours the notification mode", func() {
			build(NotifySelect)
			h.Handle(Event{Kind: Enter, X: 10, Y: 10})
			h.Handle(Event{Kind: Down, X: 10, Y: 10})
			Expect(hovers).To(BeEmpty())
			Expect(selects).To(HaveLen(1))
		})

		It("lets callbacks read state", func() {
			var seen State
			h.OnCellSelected(func(CellEvent) { seen = h.State() })
			h.Handle(Event{Kind: Down, X: 260, Y: 10})
			Expect(*seen.Selected).To(Equal(grid.Cell{Col: 5, Row: 0}))
		})
	})

	It("is safe under concurrent events", func() {
		cancelH()
		cancelS()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					h.Handle(Event{Kind: Move, X: float64(i * 50), Y: float64(j % 500)})
					_ = h.State()
				}
			}(i)
		}
		wg.Wait()
		_, ok := h.Hovered()
		Expect(ok).To(BeTrue())
	})
})
