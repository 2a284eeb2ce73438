package core

import (
	"hbridge-go/bus"
	"hbridge-go/errcode"
	"hbridge-go/types"
)

func (h *HAL) replyOK(m *bus.Message) {
	if m.CanReply() {
		_ = h.conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (h *HAL) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	if code == "" || code == errcode.OK {
		code = errcode.Error
	}
	_ = h.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (h *HAL) replyFromError(m *bus.Message, err error) {
	h.replyErr(m, errcode.Of(err))
}
