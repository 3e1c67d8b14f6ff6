package selection

import (
	"testing"
	"time"
)

// fixedClock lets tests advance the coordinator's idea of time by hand.
type fixedClock struct{ t time.Time }

func (f *fixedClock) now() time.Time { return f.t }

func newTestCoordinator() (*Coordinator, *fixedClock) {
	c := NewCoordinator()
	clock := &fixedClock{t: time.Unix(1700000000, 0)}
	c.now = clock.now
	return c, clock
}

func TestSelectScrollsBothContainers(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SetBand(ContainerCanvas, Band{Top: 0, Height: 600, Margin: 24})
	c.SetBand(ContainerList, Band{Top: 0, Height: 400, Margin: 16})
	c.SetEntry(ContainerCanvas, "r1", Entry{Top: 2000, Height: 40})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})

	cmds := c.Select("r1")
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2 (canvas + list)", len(cmds))
	}
	for _, cmd := range cmds {
		if !cmd.Eased || cmd.Duration != ScrollDuration {
			t.Errorf("command not a bounded eased scroll: %+v", cmd)
		}
		if cmd.Container != ContainerCanvas && cmd.Container != ContainerList {
			t.Errorf("command targets unknown container %q — page-level scroll is forbidden", cmd.Container)
		}
	}
}

func TestAlreadyVisibleIsNoop(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SetBand(ContainerCanvas, Band{Top: 100, Height: 600, Margin: 24})
	c.SetEntry(ContainerCanvas, "r1", Entry{Top: 300, Height: 40})

	if cmds := c.Select("r1"); len(cmds) != 0 {
		t.Errorf("entry inside the visible band still produced commands: %+v", cmds)
	}
	if c.Selected() != "r1" {
		t.Error("selection not recorded on no-op scroll")
	}
}

func TestMarginWidensVisibleBand(t *testing.T) {
	// Entry pokes 10 units past the band bottom but within the 24 margin.
	band := Band{Top: 0, Height: 600, Margin: 24}
	entry := Entry{Top: 590, Height: 20}
	if _, need := Plan(band, entry, ContainerCanvas); need {
		t.Error("entry within margin triggered a micro-scroll")
	}

	// Past the margin it scrolls.
	entry = Entry{Top: 700, Height: 20}
	cmd, need := Plan(band, entry, ContainerCanvas)
	if !need {
		t.Fatal("entry beyond margin did not scroll")
	}
	want := 700 + 10 - 300.0 // centered
	if cmd.To != want {
		t.Errorf("scroll target = %v, want %v", cmd.To, want)
	}
}

func TestPlanClampsAtTop(t *testing.T) {
	cmd, need := Plan(Band{Top: 500, Height: 600, Margin: 0}, Entry{Top: 10, Height: 20}, ContainerList)
	if !need {
		t.Fatal("entry above the band did not scroll")
	}
	if cmd.To != 0 {
		t.Errorf("scroll target = %v, want clamp at 0", cmd.To)
	}
}

func TestReselectSameIDIsNoop(t *testing.T) {
	c, clock := newTestCoordinator()
	c.SetBand(ContainerList, Band{Top: 0, Height: 400})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})

	if cmds := c.Select("r1"); len(cmds) != 1 {
		t.Fatalf("first select: got %d commands, want 1", len(cmds))
	}
	clock.t = clock.t.Add(time.Second) // past the lock
	if cmds := c.Select("r1"); len(cmds) != 0 {
		t.Errorf("re-selecting the same id emitted commands: %+v", cmds)
	}
}

func TestScrollLockSuppressesFeedback(t *testing.T) {
	c, clock := newTestCoordinator()
	c.SetBand(ContainerList, Band{Top: 0, Height: 400})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})
	c.SetEntry(ContainerList, "r2", Entry{Top: 1500, Height: 80})

	if cmds := c.Select("r1"); len(cmds) == 0 {
		t.Fatal("first select produced no commands")
	}

	// A second selection arriving while the eased scroll is in flight
	// updates the selection but must not emit more commands (the feedback
	// guard), otherwise canvas and list chase each other forever.
	if cmds := c.Select("r2"); len(cmds) != 0 {
		t.Errorf("selection during scroll lock emitted commands: %+v", cmds)
	}
	if c.Selected() != "r2" {
		t.Error("locked select dropped the selection update")
	}

	// After the lock expires scrolling resumes.
	clock.t = clock.t.Add(ScrollDuration + time.Millisecond)
	if cmds := c.Select("r1"); len(cmds) == 0 {
		t.Error("scrolling never resumed after lock expiry")
	}
}

func TestLockedSelectionStaysPending(t *testing.T) {
	c, clock := newTestCoordinator()
	c.SetBand(ContainerList, Band{Top: 0, Height: 400})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})
	c.SetEntry(ContainerList, "r2", Entry{Top: 1500, Height: 80})

	if cmds := c.Select("r1"); len(cmds) == 0 {
		t.Fatal("first select produced no commands")
	}
	if cmds := c.Select("r2"); len(cmds) != 0 {
		t.Fatalf("locked select emitted commands: %+v", cmds)
	}

	// Re-selecting r2 after the lock expires is normally a same-id no-op,
	// but the deferred selection must still be planned or its entry stays
	// off-screen forever.
	clock.t = clock.t.Add(ScrollDuration + time.Millisecond)
	cmds := c.Select("r2")
	if len(cmds) != 1 || cmds[0].Container != ContainerList {
		t.Fatalf("pending selection was not re-planned: %+v", cmds)
	}

	// Once planned, nothing stays pending.
	clock.t = clock.t.Add(ScrollDuration + time.Millisecond)
	if cmds := c.Select("r2"); len(cmds) != 0 {
		t.Errorf("re-select after the pending plan emitted commands: %+v", cmds)
	}
}

func TestFocusNeverTouchesCanvas(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SetBand(ContainerCanvas, Band{Top: 0, Height: 600})
	c.SetBand(ContainerList, Band{Top: 0, Height: 400})
	c.SetEntry(ContainerCanvas, "r1", Entry{Top: 2500, Height: 40})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})

	cmds := c.Focus("r1")
	if len(cmds) != 1 {
		t.Fatalf("focus emitted %d commands, want 1", len(cmds))
	}
	if cmds[0].Container != ContainerList {
		t.Errorf("focus scrolled %q — only the nearest scrollable ancestor may move", cmds[0].Container)
	}
}

func TestDropEntry(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SetBand(ContainerList, Band{Top: 0, Height: 400})
	c.SetEntry(ContainerList, "r1", Entry{Top: 900, Height: 80})
	c.DropEntry("r1")

	if cmds := c.Select("r1"); len(cmds) != 0 {
		t.Errorf("deleted region still produced scroll commands: %+v", cmds)
	}
}
