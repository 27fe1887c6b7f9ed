package tracing

import (
	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/datarecording"
	"github.com/sarchlab/memsym/mem/vm/mmu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/sim"
)

// Table names used by the DBTracer.
const (
	InstructionTable = "instructions"
	TranslationTable = "translations"
	EvictionTable    = "evictions"
)

// InstructionEntry is a row of the instruction table.
type InstructionEntry struct {
	Clock    uint32 `json:"clock"`
	Line     int    `json:"line"`
	PID      uint32 `json:"pid"`
	Mnemonic string `json:"mnemonic"`
	Message  string `json:"message"`
	Halted   bool   `json:"halted"`
}

// TranslationEntry is a row of the translation table.
type TranslationEntry struct {
	Clock uint32 `json:"clock"`
	PID   uint32 `json:"pid"`
	Kind  string `json:"kind"`
	VPN   uint64 `json:"vpn"`
	PFN   uint64 `json:"pfn"`
	Slot  int    `json:"slot"`
}

// EvictionEntry is a row of the eviction table.
type EvictionEntry struct {
	Clock     uint32 `json:"clock"`
	PID       uint32 `json:"pid"`
	VPN       uint64 `json:"vpn"`
	PFN       uint64 `json:"pfn"`
	Timestamp uint32 `json:"timestamp"`
}

// MapTables binds the tables written by a DBTracer to their entry types.
func MapTables(reader datarecording.DataReader) {
	reader.MapTable(InstructionTable, InstructionEntry{})
	reader.MapTable(TranslationTable, TranslationEntry{})
	reader.MapTable(EvictionTable, EvictionEntry{})
}

// DBTracer is a tracer that stores what the core reports into a database.
type DBTracer struct {
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder
}

// NewDBTracer creates a new DBTracer and the tables it writes.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(InstructionTable, InstructionEntry{})
	dataRecorder.CreateTable(TranslationTable, TranslationEntry{})
	dataRecorder.CreateTable(EvictionTable, EvictionEntry{})

	return &DBTracer{
		timeTeller: timeTeller,
		backend:    dataRecorder,
	}
}

// Record stores an output line.
func (t *DBTracer) Record(r cpu.Record) {
	t.backend.InsertData(InstructionTable, InstructionEntry{
		Clock:    uint32(t.timeTeller.Now()),
		Line:     r.Inst.Line,
		PID:      uint32(r.PID),
		Mnemonic: r.Inst.Mnemonic,
		Message:  r.Text,
		Halted:   r.Err != nil,
	})
}

// Translate stores a translation step.
func (t *DBTracer) Translate(e mmu.Event) {
	slot := -1
	if e.Kind == mmu.TLBHit {
		slot = e.Slot
	}

	t.backend.InsertData(TranslationTable, TranslationEntry{
		Clock: uint32(t.timeTeller.Now()),
		PID:   uint32(e.PID),
		Kind:  e.Kind.String(),
		VPN:   e.VPN,
		PFN:   e.PFN,
		Slot:  slot,
	})
}

// Evict stores a replaced TLB entry.
func (t *DBTracer) Evict(e tlb.Entry) {
	t.backend.InsertData(EvictionTable, EvictionEntry{
		Clock:     uint32(t.timeTeller.Now()),
		PID:       uint32(e.PID),
		VPN:       e.VPN,
		PFN:       e.PFN,
		Timestamp: uint32(e.Timestamp),
	})
}

// Terminate flushes the buffered rows.
func (t *DBTracer) Terminate() {
	t.backend.Flush()
}
