// Package monitoring serves the state of a finished simulation over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/datarecording"
	"github.com/sarchlab/memsym/mem/vm"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/monitoring/web"
	"github.com/sarchlab/memsym/sim"
	"github.com/sarchlab/memsym/tracing"
)

type statsReporter interface {
	Stats() tracing.Stats
}

type entryLister interface {
	Entries() []tlb.Entry
}

// Monitor turns a simulation into a server so that the final machine state
// can be inspected.
type Monitor struct {
	title       string
	core        *cpu.Core
	components  []sim.Component
	stats       statsReporter
	records     datarecording.DataReader
	portNumber  int
	openBrowser bool

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{title: "memsym"}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithTitle sets the name the run is shown with.
func (m *Monitor) WithTitle(title string) *Monitor {
	m.title = title
	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterCore registers the core whose state is served. The core is also
// registered as a component.
func (m *Monitor) RegisterCore(c *cpu.Core) {
	m.core = c
	m.RegisterComponent(c)
}

// RegisterComponent register a component to be monitored.
func (m *Monitor) RegisterComponent(c sim.Component) {
	m.components = append(m.components, c)
}

// RegisterStats registers where the run statistics come from.
func (m *Monitor) RegisterStats(s statsReporter) {
	m.stats = s
}

// RegisterDataReader registers the recorded trace database. Its instruction,
// translation, and eviction tables are served page by page.
func (m *Monitor) RegisterDataReader(reader datarecording.DataReader) {
	m.records = reader
}

// Router returns the handler of all the monitor routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/title", m.showTitle)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/state", m.showState)
	r.HandleFunc("/api/components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/tlb", m.listTLBEntries)
	r.HandleFunc("/api/pagetable/{pid}", m.listPageTable)
	r.HandleFunc("/api/memory/{addr}", m.showMemory)
	r.HandleFunc("/api/registers", m.listRegisters)
	r.HandleFunc("/api/stats", m.showStats)
	r.HandleFunc("/api/instructions", m.listRecords(tracing.InstructionTable))
	r.HandleFunc("/api/translations", m.listRecords(tracing.TranslationTable))
	r.HandleFunc("/api/evictions", m.listRecords(tracing.EvictionTable))
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// listenAddress returns the address to listen on. Without a usable port
// number, the system picks a free one.
func (m *Monitor) listenAddress() string {
	if m.portNumber >= 1000 {
		return ":" + strconv.Itoa(m.portNumber)
	}

	return ":0"
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	listener, err := net.Listen("tcp", m.listenAddress())
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	return url
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) showTitle(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"title": m.title})
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.coreOr404(w) {
		return
	}

	fmt.Fprintf(w, "{\"now\":%d}", m.core.Now())
}

type stateRsp struct {
	State    string `json:"state"`
	PID      vm.PID `json:"pid"`
	Now      uint32 `json:"now"`
	Geometry string `json:"geometry,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (m *Monitor) showState(w http.ResponseWriter, _ *http.Request) {
	if !m.coreOr404(w) {
		return
	}

	ctx := m.core.Context()
	rsp := stateRsp{
		State: m.core.State().String(),
		PID:   ctx.PID(),
		Now:   uint32(m.core.Now()),
	}

	if m.core.State() != cpu.Unconfigured {
		rsp.Geometry = m.core.Geometry().String()
	}

	if err := m.core.HaltErr(); err != nil {
		rsp.Error = err.Error()
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type tlbEntryRsp struct {
	Slot      int    `json:"slot"`
	Valid     bool   `json:"valid"`
	PID       vm.PID `json:"pid"`
	VPN       uint64 `json:"vpn"`
	PFN       uint64 `json:"pfn"`
	Timestamp uint32 `json:"timestamp"`
}

func (m *Monitor) listTLBEntries(w http.ResponseWriter, _ *http.Request) {
	if !m.coreOr404(w) {
		return
	}

	lister, ok := m.core.TLB().(entryLister)
	if !ok {
		http.Error(w, "TLB cannot list its entries", http.StatusNotImplemented)
		return
	}

	entries := lister.Entries()
	rsp := make([]tlbEntryRsp, 0, len(entries))

	for slot, e := range entries {
		rsp = append(rsp, tlbEntryRsp{
			Slot:      slot,
			Valid:     e.Valid,
			PID:       e.PID,
			VPN:       e.VPN,
			PFN:       e.PFN,
			Timestamp: uint32(e.Timestamp),
		})
	}

	writeJSON(w, rsp)
}

type pageRsp struct {
	VPN uint64 `json:"vpn"`
	PFN uint64 `json:"pfn"`
}

// listPageTable lists the valid pages of a process.
func (m *Monitor) listPageTable(w http.ResponseWriter, r *http.Request) {
	if !m.definedCoreOr404(w) {
		return
	}

	pid, err := strconv.ParseUint(mux.Vars(r)["pid"], 10, 32)
	if err != nil || !vm.PID(pid).Valid() {
		http.Error(w, "invalid process", http.StatusBadRequest)
		return
	}

	pageTable := m.core.MMU().PageTable()
	rsp := []pageRsp{}

	for vpn := uint64(0); vpn < pageTable.NumPages(); vpn++ {
		page := pageTable.Entry(vm.PID(pid), vpn)
		if page.Valid {
			rsp = append(rsp, pageRsp{VPN: page.VPN, PFN: page.PFN})
		}
	}

	writeJSON(w, rsp)
}

type memoryRsp struct {
	Address uint64 `json:"address"`
	Value   uint32 `json:"value"`
}

func (m *Monitor) showMemory(w http.ResponseWriter, r *http.Request) {
	if !m.definedCoreOr404(w) {
		return
	}

	addr, err := strconv.ParseUint(mux.Vars(r)["addr"], 0, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	memory := m.core.Memory()
	if addr >= memory.Capacity() {
		http.Error(w, "address out of range", http.StatusBadRequest)
		return
	}

	writeJSON(w, memoryRsp{Address: addr, Value: memory.Peek(addr)})
}

type registersRsp struct {
	PID vm.PID `json:"pid"`
	R1  uint32 `json:"r1"`
	R2  uint32 `json:"r2"`
}

func (m *Monitor) listRegisters(w http.ResponseWriter, _ *http.Request) {
	if !m.coreOr404(w) {
		return
	}

	ctx := m.core.Context()
	rsp := make([]registersRsp, 0, vm.NumProcesses)

	for pid := vm.PID(0); pid < vm.NumProcesses; pid++ {
		regs := ctx.Registers(pid)
		rsp = append(rsp, registersRsp{PID: pid, R1: regs.R1, R2: regs.R2})
	}

	writeJSON(w, rsp)
}

type statsRsp struct {
	tracing.Stats
	HitRate float64 `json:"hit_rate"`
}

func (m *Monitor) showStats(w http.ResponseWriter, _ *http.Request) {
	if m.stats == nil {
		http.Error(w, "statistics not collected", http.StatusNotFound)
		return
	}

	s := m.stats.Stats()
	writeJSON(w, statsRsp{Stats: s, HitRate: s.HitRate()})
}

const defaultRecordLimit = 100

type recordsRsp struct {
	Total   int   `json:"total"`
	Records []any `json:"records"`
}

// listRecords serves one page of a recorded table, ordered by clock. The
// limit and offset query parameters select the page and pid filters by
// process.
func (m *Monitor) listRecords(tableName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.records == nil {
			http.Error(w, "trace not recorded", http.StatusNotFound)
			return
		}

		params, err := recordQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		records, total, err := m.records.Query(r.Context(), tableName, params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, recordsRsp{Total: total, Records: records})
	}
}

func recordQuery(r *http.Request) (datarecording.QueryParams, error) {
	params := datarecording.QueryParams{
		OrderBy: "Clock, rowid",
		Limit:   defaultRecordLimit,
	}

	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return params, fmt.Errorf("invalid limit %q", v)
		}

		params.Limit = limit
	}

	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return params, fmt.Errorf("invalid offset %q", v)
		}

		params.Offset = offset
	}

	if v := q.Get("pid"); v != "" {
		pid, err := strconv.ParseUint(v, 10, 32)
		if err != nil || !vm.PID(pid).Valid() {
			return params, fmt.Errorf("invalid process %q", v)
		}

		params.Where = "PID = ?"
		params.Args = []any{pid}
	}

	return params, nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) coreOr404(w http.ResponseWriter) bool {
	if m.core == nil {
		http.Error(w, "no core registered", http.StatusNotFound)
		return false
	}

	return true
}

func (m *Monitor) definedCoreOr404(w http.ResponseWriter) bool {
	if !m.coreOr404(w) {
		return false
	}

	if m.core.State() == cpu.Unconfigured || m.core.MMU() == nil {
		http.Error(w, "memory not defined", http.StatusNotFound)
		return false
	}

	return true
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	http.Error(w, "Component not found", http.StatusNotFound)

	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
