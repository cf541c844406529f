package sim

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"pair-maker-go/gateway"
	"pair-maker-go/internal/engine"
)

// Replayer reads a JSON-lines recording, one envelope per line. Blank lines
// and lines starting with '#' are skipped.
type Replayer struct {
	sc   *bufio.Scanner
	line int
}

func NewReplayer(r io.Reader) *Replayer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &Replayer{sc: sc}
}

// Next 返回下一条事件；读完返回 io.EOF。
func (p *Replayer) Next() (engine.Event, error) {
	for p.sc.Scan() {
		p.line++
		raw := bytes.TrimSpace(p.sc.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		ev, err := gateway.DecodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", p.line, err)
		}
		return ev, nil
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", p.line, err)
	}
	return nil, io.EOF
}

// Line 最近读到的行号。
func (p *Replayer) Line() int { return p.line }

// Recorder 把事件写成 Replayer 可读的格式，同时转发给下游。
type Recorder struct {
	w    io.Writer
	next gateway.Sink
	err  error
}

func NewRecorder(w io.Writer, next gateway.Sink) *Recorder {
	return &Recorder{w: w, next: next}
}

// Submit 先落盘再转发；写失败后不再写，但继续转发。
func (r *Recorder) Submit(ev engine.Event) bool {
	if r.err == nil {
		raw, err := gateway.EncodeEvent(ev)
		if err == nil {
			raw = append(raw, '\n')
			_, err = r.w.Write(raw)
		}
		r.err = err
	}
	if r.next == nil {
		return true
	}
	return r.next.Submit(ev)
}

// Err 第一次写入错误。
func (r *Recorder) Err() error { return r.err }
