// internal/connection/manager.go
package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
	"printer-bridge/internal/utils"
)

// Options tunes timeouts and the access policy
type Options struct {
	ConnectTimeout time.Duration
	GrantTimeout   time.Duration
	AutoGrant      bool
}

// Status is a snapshot of the link
type Status struct {
	State    model.ConnectionState `json:"state"`
	Device   *model.Device         `json:"device,omitempty"`
	Stats    *transport.Stats      `json:"stats,omitempty"`
	Scanning bool                  `json:"scanning"`
	Printing bool                  `json:"printing"`
}

// scanRequest accumulates one discovery
type scanRequest struct {
	token   string
	cancel  context.CancelFunc
	index   map[string]int
	devices []model.Device
}

// connectRequest tracks one in-flight connect
type connectRequest struct {
	token   string
	cancel  context.CancelFunc
	aborted bool
}

// Manager owns the single printer session and sequences every operation
// on it. Each resource class admits one request at a time; a second
// request is rejected with ErrAlreadyInProgress instead of queueing.
type Manager struct {
	mutex sync.Mutex

	transports *transport.Set
	discoverer transport.Discoverer
	publisher  model.EventPublisher
	options    Options
	logger     *zap.Logger

	state   model.ConnectionState
	scan    *scanRequest
	connect *connectRequest
	writing bool
	session transport.Session
	device  *model.Device
	known   map[string]model.Device
	access  *accessBroker
}

// NewManager creates a connection manager in the Idle state
func NewManager(transports *transport.Set, discoverer transport.Discoverer, publisher model.EventPublisher, options Options, logger *zap.Logger) *Manager {
	if publisher == nil {
		publisher = model.NopPublisher{}
	}
	m := &Manager{
		transports: transports,
		discoverer: discoverer,
		publisher:  publisher,
		options:    options,
		logger:     logger.With(zap.String("component", "connection")),
		state:      model.StateIdle,
	}
	m.access = newAccessBroker(m.publish)
	return m
}

// setState must be called with the mutex held
func (m *Manager) setState(next model.ConnectionState, token string, cause error) {
	prev := m.state
	if prev == next {
		return
	}
	m.state = next

	ev := model.Event{
		Type:     model.EventStateChanged,
		Token:    token,
		State:    next,
		Previous: prev,
		Device:   m.device,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	m.publish(ev)

	m.logger.Debug("State changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.String("token", token),
	)
}

func (m *Manager) publish(ev model.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	m.publisher.Publish(ev)
}

// State returns the current state
func (m *Manager) State() model.ConnectionState {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state
}

// Status returns the state plus the active device and its statistics
func (m *Manager) Status() Status {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	st := Status{
		State:    m.state,
		Scanning: m.scan != nil,
		Printing: m.writing,
	}
	if m.device != nil {
		d := *m.device
		st.Device = &d
	}
	if m.session != nil {
		stats := m.session.Stats()
		st.Stats = &stats
	}
	return st
}

// IsConnected reports whether a session is ready for writes
func (m *Manager) IsConnected() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.state == model.StateReady && m.session != nil
}

// Scan runs one discovery and returns its de-duplicated result. Cancelling
// ctx or calling StopScan ends the scan early with what was found so far.
// A Ready session stays Ready while scanning.
func (m *Manager) Scan(ctx context.Context, mode model.ScanMode) ([]model.Device, error) {
	m.mutex.Lock()
	if m.scan != nil || m.connect != nil {
		m.mutex.Unlock()
		return nil, model.Wrap(model.ErrAlreadyInProgress, "scan", nil)
	}
	if m.discoverer == nil {
		m.mutex.Unlock()
		return nil, model.ErrNoRadioSupport
	}

	scanCtx, cancel := context.WithCancel(ctx)
	req := &scanRequest{
		token:  uuid.NewString(),
		cancel: cancel,
		index:  make(map[string]int),
	}
	m.scan = req
	if m.state != model.StateReady {
		m.setState(model.StateDiscovering, req.token, nil)
	}
	m.mutex.Unlock()
	defer cancel()

	opLogger := utils.NewOperationLogger(m.logger, "scan", req.token)
	opLogger.Start(zap.String("mode", string(mode)))

	err := m.discoverer.Discover(scanCtx, mode, func(d model.Device) {
		m.DeviceFound(req.token, d)
	})
	if err != nil && scanCtx.Err() != nil && errors.Is(err, scanCtx.Err()) {
		err = nil
	}

	devices, err := m.DiscoveryFinished(req.token, err)
	if err != nil {
		opLogger.Error(err)
		return nil, err
	}
	opLogger.Success(zap.Int("devices", len(devices)))
	return devices, nil
}

// DeviceFound ingests one discovered device for the scan identified by
// token. Reports for a finished or unknown scan are ignored.
func (m *Manager) DeviceFound(token string, d model.Device) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	req := m.scan
	if req == nil || req.token != token {
		return
	}

	key := model.NormalizeAddress(d.Address)
	if key == "" {
		return
	}
	d.Address = key
	if d.DisplayName == "" {
		d.DisplayName = model.UnknownDeviceName
	}

	if i, ok := req.index[key]; ok {
		merged := model.DedupeDevices([]model.Device{req.devices[i], d})
		req.devices[i] = merged[0]
		return
	}
	req.index[key] = len(req.devices)
	req.devices = append(req.devices, d)

	dev := d
	m.publish(model.Event{Type: model.EventDeviceFound, Token: token, Device: &dev})
}

// DiscoveryFinished ingests the terminal discovery event and returns the
// accumulated devices. It resolves the scan exactly once; later calls for
// the same token fail with ErrRequestNotFound.
func (m *Manager) DiscoveryFinished(token string, cause error) ([]model.Device, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	req := m.scan
	if req == nil || req.token != token {
		return nil, model.ErrRequestNotFound
	}
	m.scan = nil
	req.cancel()

	// a connect that cancelled this scan owns the state now
	owned := m.state == model.StateDiscovering && m.connect == nil

	if cause != nil {
		if owned {
			m.setState(model.StateFailed, token, cause)
		}
		if model.KindOf(cause) == model.KindInternal {
			cause = model.Wrap(model.ErrNoRadioSupport, "scan", cause)
		}
		return nil, cause
	}

	devices := req.devices
	if devices == nil {
		devices = []model.Device{}
	}
	m.known = make(map[string]model.Device, len(devices))
	for _, d := range devices {
		m.known[d.Address] = d
	}
	m.publish(model.Event{
		Type:  model.EventScanCompleted,
		Token: token,
		Data:  map[string]interface{}{"count": len(devices)},
	})
	if owned {
		m.setState(model.StateIdle, token, nil)
	}
	return devices, nil
}

// StopScan ends an in-flight discovery early. It reports whether a scan
// was running.
func (m *Manager) StopScan() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.scan == nil {
		return false
	}
	m.scan.cancel()
	return true
}

// beginConnect reserves the connect slot; called with the mutex held
func (m *Manager) beginConnect(ctx context.Context, op string) (*connectRequest, context.Context, error) {
	if m.connect != nil {
		return nil, nil, model.Wrap(model.ErrAlreadyInProgress, op, nil)
	}
	if m.writing {
		return nil, nil, model.Errorf(model.ErrAlreadyInProgress, op, "print in progress")
	}

	if m.scan != nil {
		m.scan.cancel()
	}

	connectCtx, cancel := m.connectContext(ctx)
	req := &connectRequest{token: uuid.NewString(), cancel: cancel}
	m.connect = req
	return req, connectCtx, nil
}

// releaseSession closes the current session; called with the mutex held.
// Close errors are logged and swallowed.
func (m *Manager) releaseSession() {
	if m.session == nil {
		return
	}
	if err := m.session.Close(); err != nil {
		m.logger.Warn("Session close failed", zap.Error(err))
	}
	if m.device != nil {
		utils.NewDeviceLogger(m.logger, m.device.Address, m.device.Transport).LogConnection("disconnected", nil)
	}
	m.session = nil
	m.device = nil
}

// finishConnect installs a new session or records the failure
func (m *Manager) finishConnect(req *connectRequest, device model.Device, session transport.Session, err error) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	req.cancel()
	if m.connect == req {
		m.connect = nil
	}

	if err == nil && req.aborted {
		session.Close()
		err = model.Errorf(model.ErrConnectFailed, "connect", "cancelled by disconnect")
	}
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			err = model.Wrap(model.ErrConnectFailed, "connect", err)
		}
		utils.NewDeviceLogger(m.logger, device.Address, device.Transport).LogConnection("connect", err)
		if !req.aborted {
			m.releaseSession()
			m.setState(model.StateFailed, req.token, err)
		}
		return err
	}

	m.releaseSession()
	m.session = session
	m.device = &device
	m.setState(model.StateReady, req.token, nil)

	utils.NewDeviceLogger(m.logger, device.Address, device.Transport).LogConnection("connected", nil)
	return nil
}

// Connect opens a session to address, replacing any current session.
// Connecting to the already connected address is a no-op.
func (m *Manager) Connect(ctx context.Context, address string) error {
	address = model.NormalizeAddress(address)

	m.mutex.Lock()
	if m.state == model.StateReady && m.device != nil && m.device.Address == address && m.session != nil {
		m.mutex.Unlock()
		return nil
	}
	req, connectCtx, err := m.beginConnect(ctx, "connect")
	if err != nil {
		m.mutex.Unlock()
		return err
	}
	m.setState(model.StateConnecting, req.token, nil)
	m.mutex.Unlock()

	tr, err := m.transports.ForAddress(address)
	if err != nil {
		return m.finishConnect(req, model.NewDevice("", address, ""), nil, err)
	}

	device := m.lookup(address, tr.Kind())
	session, err := tr.Open(connectCtx, address)
	return m.finishConnect(req, device, session, err)
}

// lookup returns the device as the last scan reported it
func (m *Manager) lookup(address string, kind model.TransportKind) model.Device {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if d, ok := m.known[address]; ok {
		d.Transport = kind
		return d
	}
	return model.NewDevice("", address, kind)
}

// ConnectWired probes the wired transport for its sole printer, obtains an
// access grant when the host has not given one, and opens it. It returns
// the device identifier.
func (m *Manager) ConnectWired(ctx context.Context) (string, error) {
	m.mutex.Lock()
	req, connectCtx, err := m.beginConnect(ctx, "connect_wired")
	if err != nil {
		m.mutex.Unlock()
		return "", err
	}
	wired := m.transports.Wired
	m.setState(model.StateDiscovering, req.token, nil)
	m.mutex.Unlock()

	if wired == nil {
		return "", m.finishConnect(req, model.Device{}, nil, model.ErrNoDeviceFound)
	}

	candidate, err := wired.Probe(connectCtx)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			err = model.Wrap(model.ErrNoDeviceFound, "connect_wired", err)
		}
		return "", m.finishConnect(req, model.Device{}, nil, err)
	}
	device := candidate.Device

	// an operator may take a while; the connect timeout restarts after the grant
	regrant := !candidate.Accessible
	if regrant {
		if err := m.awaitGrant(ctx, req, device); err != nil {
			return "", m.finishConnect(req, device, nil, err)
		}
	}

	m.mutex.Lock()
	aborted := req.aborted
	if !aborted {
		if regrant {
			req.cancel()
			connectCtx, req.cancel = m.connectContext(ctx)
		}
		m.setState(model.StateConnecting, req.token, nil)
	}
	m.mutex.Unlock()
	if aborted {
		return "", m.finishConnect(req, device, nil, model.Errorf(model.ErrConnectFailed, "connect_wired", "cancelled by disconnect"))
	}

	session, err := wired.Open(connectCtx, device.Address)
	if err := m.finishConnect(req, device, session, err); err != nil {
		return "", err
	}
	return device.Address, nil
}

func (m *Manager) connectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.options.ConnectTimeout > 0 {
		return context.WithTimeout(ctx, m.options.ConnectTimeout)
	}
	return context.WithCancel(ctx)
}

// awaitGrant parks the connect in AwaitingAccessGrant until the request is
// resolved, times out, or ctx ends. Only a grant returns nil.
func (m *Manager) awaitGrant(ctx context.Context, req *connectRequest, device model.Device) error {
	m.mutex.Lock()
	m.setState(model.StateAwaitingAccessGrant, req.token, nil)
	pending := m.access.open(req.token, device)
	m.mutex.Unlock()

	if m.options.AutoGrant {
		m.access.resolve(req.token, true)
	}

	waitCtx := ctx
	if m.options.GrantTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.options.GrantTimeout)
		defer cancel()
	}

	select {
	case granted := <-pending.result:
		if !granted {
			return model.Wrap(model.ErrAccessDenied, "connect_wired", nil)
		}
		return nil
	case <-waitCtx.Done():
		m.access.resolve(req.token, false)
		return model.Wrap(model.ErrAccessDenied, "connect_wired", waitCtx.Err())
	}
}

// ResolveAccess ingests the host's grant or deny for a pending request
func (m *Manager) ResolveAccess(token string, granted bool) error {
	if !m.access.resolve(token, granted) {
		return model.ErrRequestNotFound
	}
	return nil
}

// PendingAccess lists unresolved access requests
func (m *Manager) PendingAccess() []AccessRequest {
	return m.access.pending()
}

// Disconnect tears down whatever is in progress and the current session.
// It always succeeds; calling it while already disconnected does nothing.
func (m *Manager) Disconnect() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.connect != nil {
		m.connect.aborted = true
		m.connect.cancel()
		m.access.resolve(m.connect.token, false)
	}

	if m.session == nil && m.connect == nil {
		if m.state == model.StateFailed {
			m.setState(model.StateDisconnected, "", nil)
		}
		return
	}

	m.releaseSession()
	m.setState(model.StateDisconnected, "", nil)
}

// Write sends data over the ready session, split into frames no larger
// than the session's frame size. It reports one outcome for the whole
// buffer. A failed write destroys the session.
func (m *Manager) Write(ctx context.Context, data []byte) error {
	m.mutex.Lock()
	if m.state != model.StateReady || m.session == nil {
		m.mutex.Unlock()
		return model.ErrNotConnected
	}
	if m.writing {
		m.mutex.Unlock()
		return model.Wrap(model.ErrAlreadyInProgress, "write", nil)
	}
	m.writing = true
	session := m.session
	device := *m.device
	m.mutex.Unlock()

	token := uuid.NewString()
	start := time.Now()
	frames, err := transport.Write(ctx, session, data)
	utils.NewDeviceLogger(m.logger, device.Address, device.Transport).LogWrite(len(data), frames, time.Since(start), err)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.writing = false

	if err != nil {
		err = model.Wrap(model.ErrWriteFailed, "write", err)
		m.publish(model.Event{Type: model.EventPrintFailed, Token: token, Device: &device, Error: err.Error()})

		// the session may already have been replaced by a disconnect
		if m.session == session {
			m.publish(model.Event{Type: model.EventTransportFailure, Token: token, Device: &device, Error: err.Error()})
			m.releaseSession()
			m.setState(model.StateFailed, token, err)
		}
		return err
	}

	m.publish(model.Event{
		Type:   model.EventPrintCompleted,
		Token:  token,
		Device: &device,
		Data:   map[string]interface{}{"bytes": len(data), "frames": frames},
	})
	return nil
}
