package core

import (
	"context"
	"reflect"
	"time"

	"hbridge-go/bus"
	"hbridge-go/errcode"
	"hbridge-go/types"
)

const (
	eventQueueLen = 16
	defaultDomain = "motion"
)

// managed is one built device and the capabilities it published.
type managed struct {
	dev    Device
	typ    string
	params any
	caps   []CapAddr
}

type HAL struct {
	conn *bus.Connection
	res  Resources

	devs  map[string]*managed
	order []string // build order; devices close in reverse

	capIndex map[CapAddr]string // capability -> device id

	// Device events are published from the HAL goroutine only.
	evCh chan Event
}

func NewHAL(conn *bus.Connection, reg ResourceRegistry) *HAL {
	h := &HAL{
		conn:     conn,
		devs:     map[string]*managed{},
		capIndex: map[CapAddr]string{},
		evCh:     make(chan Event, eventQueueLen),
	}
	h.res = Resources{Reg: reg, Pub: h}
	return h
}

// Run serves config and controls until ctx is cancelled, then closes every
// device in reverse build order.
func (h *HAL) Run(ctx context.Context) {
	cfgSub := h.conn.Subscribe(TopicConfigHAL())
	ctrlSub := h.conn.Subscribe(ctrlWildcard())
	defer h.conn.Unsubscribe(cfgSub)
	defer h.conn.Unsubscribe(ctrlSub)

	h.pubHALState("idle", "")
	ready := false
	for {
		select {
		case <-ctx.Done():
			h.retireAll()
			h.pubHALState("stopped", "context_cancelled")
			return
		case msg := <-cfgSub.Channel():
			cfg, code := As[types.HALConfig](msg.Payload)
			if code != "" {
				println("[hal] ignoring config with unexpected payload")
				continue
			}
			failed := h.applyConfig(ctx, cfg)
			ready = true
			if failed > 0 {
				h.pubHALState("ready", "build_failed")
			} else {
				h.pubHALState("ready", "")
			}
		case m := <-ctrlSub.Channel():
			if !ready {
				h.replyErr(m, errcode.HALNotReady)
				continue
			}
			h.handleControl(m)
		case ev := <-h.evCh:
			h.handleEvent(ev)
		}
		// Publish what controls emitted before taking the next message.
		h.drainEvents()
	}
}

func (h *HAL) drainEvents() {
	for {
		select {
		case ev := <-h.evCh:
			h.handleEvent(ev)
		default:
			return
		}
	}
}

// applyConfig reconciles the running devices with cfg. Devices whose type
// and params are unchanged keep running; the rest are closed first so their
// pins are free, then the new set is built. It returns the number of
// entries that failed to build.
func (h *HAL) applyConfig(ctx context.Context, cfg types.HALConfig) int {
	want := make(map[string]types.HALDevice, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		if _, dup := want[dc.ID]; dup {
			println("[hal] duplicate device id ignored:", dc.ID)
			continue
		}
		want[dc.ID] = dc
	}
	for i := len(h.order) - 1; i >= 0; i-- {
		id := h.order[i]
		m := h.devs[id]
		dc, keep := want[id]
		if keep && dc.Type == m.typ && reflect.DeepEqual(dc.Params, m.params) {
			continue
		}
		h.retire(id)
	}

	failed := 0
	seen := map[string]bool{}
	for _, dc := range cfg.Devices {
		if seen[dc.ID] {
			continue
		}
		seen[dc.ID] = true
		if _, running := h.devs[dc.ID]; running {
			continue
		}
		if err := h.build(ctx, dc); err != nil {
			println("[hal] build failed for:", dc.ID, "err:", err.Error())
			failed++
		}
	}
	return failed
}

func (h *HAL) build(ctx context.Context, dc types.HALDevice) error {
	b, ok := lookupBuilder(dc.Type)
	if !ok {
		return &errcode.E{C: errcode.Unsupported, Op: "hal.build", Msg: unknownTypeMsg(dc.Type)}
	}
	dev, err := b.Build(ctx, BuilderInput{ID: dc.ID, Type: dc.Type, Params: dc.Params, Res: h.res})
	if err != nil {
		return err
	}
	m := &managed{dev: dev, typ: dc.Type, params: dc.Params}
	for _, cs := range dev.Capabilities() {
		addr := CapAddr{Domain: cs.Domain, Kind: string(cs.Kind), Name: cs.Name}
		if addr.Domain == "" {
			addr.Domain = defaultDomain
		}
		if addr.Name == "" {
			addr.Name = dev.ID()
		}
		if other, taken := h.capIndex[addr]; taken {
			println("[hal] capability", addr.Name, "already provided by", other)
			continue
		}
		h.capIndex[addr] = dev.ID()
		m.caps = append(m.caps, addr)
		h.conn.Publish(h.conn.NewMessage(CapInfo(addr.Domain, addr.Kind, addr.Name), cs.Info, true))
		h.pubStatus(addr, types.LinkDown, "", time.Now().UnixNano())
	}
	h.devs[dev.ID()] = m
	h.order = append(h.order, dev.ID())
	if err := dev.Init(ctx); err != nil {
		println("[hal] init failed for:", dc.ID, "err:", err.Error())
	}
	return nil
}

// retire closes one device and withdraws its retained capability topics.
func (h *HAL) retire(id string) {
	m := h.devs[id]
	if m == nil {
		return
	}
	if err := m.dev.Close(); err != nil {
		println("[hal] close failed for:", id, "err:", err.Error())
	}
	h.drainEvents()
	for _, a := range m.caps {
		delete(h.capIndex, a)
		h.conn.Publish(h.conn.NewMessage(CapInfo(a.Domain, a.Kind, a.Name), nil, true))
		h.conn.Publish(h.conn.NewMessage(CapValue(a.Domain, a.Kind, a.Name), nil, true))
		h.pubStatus(a, types.LinkDown, "", time.Now().UnixNano())
	}
	delete(h.devs, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *HAL) retireAll() {
	for len(h.order) > 0 {
		h.retire(h.order[len(h.order)-1])
	}
}

// parseCtrl splits hal/cap/<domain>/<kind>/<name>/control/<verb>.
func parseCtrl(t bus.Topic) (CapAddr, string, bool) {
	if len(t) != 7 {
		return CapAddr{}, "", false
	}
	domain, ok1 := t[2].(string)
	kind, ok2 := t[3].(string)
	name, ok3 := t[4].(string)
	verb, ok4 := t[6].(string)
	return CapAddr{Domain: domain, Kind: kind, Name: name}, verb, ok1 && ok2 && ok3 && ok4
}

func (h *HAL) handleControl(msg *bus.Message) {
	addr, verb, ok := parseCtrl(msg.Topic)
	if !ok {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	ownerID, ok := h.capIndex[addr]
	if !ok {
		h.replyErr(msg, errcode.UnknownCapability)
		return
	}
	res, err := h.devs[ownerID].dev.Control(addr, verb, msg.Payload)
	switch {
	case err != nil:
		h.replyFromError(msg, err)
	case res.OK:
		h.replyOK(msg)
	case res.Error == "":
		h.replyErr(msg, errcode.Busy)
	default:
		h.replyErr(msg, res.Error)
	}
}

func (h *HAL) handleEvent(ev Event) {
	if _, live := h.capIndex[ev.Addr]; !live {
		return
	}
	if ev.Err != "" {
		h.pubStatus(ev.Addr, types.LinkDegraded, ev.Err, ev.TS)
		return
	}
	a := ev.Addr
	h.conn.Publish(h.conn.NewMessage(CapValue(a.Domain, a.Kind, a.Name), ev.Payload, true))
	h.pubStatus(a, types.LinkUp, "", ev.TS)
}

func (h *HAL) pubStatus(a CapAddr, link types.Link, errCode string, ts int64) {
	h.conn.Publish(h.conn.NewMessage(
		CapStatus(a.Domain, a.Kind, a.Name),
		types.CapabilityStatus{Link: link, TS: ts, Error: errCode},
		true,
	))
}

func (h *HAL) pubHALState(level, status string) {
	h.conn.Publish(h.conn.NewMessage(
		TopicHALState(),
		types.HALState{Level: level, Status: status, TS: time.Now().UnixNano()},
		true,
	))
}

// Emit queues ev for publication. It never blocks; false means dropped.
func (h *HAL) Emit(ev Event) bool {
	select {
	case h.evCh <- ev:
		return true
	default:
		return false
	}
}
