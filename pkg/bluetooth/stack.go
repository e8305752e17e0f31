package bluetooth

import "sync"

// SecurityEvent is raised by the stack during pairing.
type SecurityEvent int

// Security events
const (
	SecurityNone SecurityEvent = iota
	// SecurityStarted means the host asks for a passkey.
	SecurityStarted
	SecurityFailed
)

// Stack is the BLE stack driving the radio.
type Stack interface {
	Init() error
	Inited() bool

	Advertising() bool
	Connected() bool
	Idle() bool

	// StartAdvertising advertises to anyone, or only to bonded hosts when
	// whitelist is set.
	StartAdvertising(whitelist bool) error
	StopAdvertising() error
	SetWhitelist(bool)
	SetChannel(ch uint8)
	SetDeviceName(name string)
	// ApplyChannel regenerates the GAP address of the current channel.
	ApplyChannel() error
	// Reinit re-initializes GAP parameters and advertising data.
	Reinit() error
	Disconnect() error

	Peers() []PeerID
	DeletePeer(PeerID) error
	ConnectedPeer() (PeerID, Address)
	// RequestDeviceName asks the host for its name, done is called when
	// ConnectedName is available. done may run on another goroutine.
	RequestDeviceName(done func())
	ConnectedName() Name
	SendPasskey(pin [6]byte) error
	// TakeSecurityEvent returns and clears the pending security event.
	TakeSecurityEvent() SecurityEvent

	UpdateBatteryLevel(level uint8)
	// Run processes stack events, from the service tick.
	Run()
}

type simState int

const (
	simIdle simState = iota
	simAdvertising
	simConnected
)

// SimStack is an in-memory Stack. Hosts connect and pair through its
// exported methods.
type SimStack struct {
	Calls []string

	lock      sync.Mutex
	inited    bool
	state     simState
	whitelist bool
	channel   uint8
	name      string
	peers     []PeerID
	connPeer  PeerID
	connAddr  Address
	connName  Name
	passkeys  [][6]byte
	security  SecurityEvent
	battery   uint8
	nameDone  func()
}

// NewSimStack creates a stack with bonded peers.
func NewSimStack(peers ...PeerID) *SimStack {
	return &SimStack{peers: peers, connPeer: PeerInvalid}
}

func (s *SimStack) call(name string) {
	s.Calls = append(s.Calls, name)
}

// Init implements Stack.
func (s *SimStack) Init() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("init")
	s.inited = true
	return nil
}

// Inited implements Stack.
func (s *SimStack) Inited() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.inited
}

// Advertising implements Stack.
func (s *SimStack) Advertising() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state == simAdvertising
}

// Connected implements Stack.
func (s *SimStack) Connected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state == simConnected
}

// Idle implements Stack.
func (s *SimStack) Idle() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state == simIdle
}

// StartAdvertising implements Stack.
func (s *SimStack) StartAdvertising(whitelist bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if whitelist {
		s.call("advertise whitelist")
	} else {
		s.call("advertise")
	}
	s.whitelist = whitelist
	s.state = simAdvertising
	return nil
}

// StopAdvertising implements Stack.
func (s *SimStack) StopAdvertising() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("stop advertising")
	if s.state == simAdvertising {
		s.state = simIdle
	}
	return nil
}

// SetWhitelist implements Stack.
func (s *SimStack) SetWhitelist(on bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.whitelist = on
}

// Whitelist returns the whitelist setting.
func (s *SimStack) Whitelist() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.whitelist
}

// SetChannel implements Stack.
func (s *SimStack) SetChannel(ch uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.channel = ch
}

// Channel returns the configured channel.
func (s *SimStack) Channel() uint8 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.channel
}

// SetDeviceName implements Stack.
func (s *SimStack) SetDeviceName(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.name = name
}

// DeviceName returns the advertised name.
func (s *SimStack) DeviceName() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.name
}

// ApplyChannel implements Stack.
func (s *SimStack) ApplyChannel() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("apply channel")
	return nil
}

// Reinit implements Stack.
func (s *SimStack) Reinit() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("reinit")
	return nil
}

// Disconnect implements Stack.
func (s *SimStack) Disconnect() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("disconnect")
	if s.state == simConnected {
		s.state = simIdle
		s.connPeer = PeerInvalid
	}
	return nil
}

// Peers implements Stack.
func (s *SimStack) Peers() []PeerID {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]PeerID(nil), s.peers...)
}

// DeletePeer implements Stack.
func (s *SimStack) DeletePeer(id PeerID) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.call("delete peer")
	for i, p := range s.peers {
		if p == id {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			break
		}
	}
	return nil
}

// ConnectedPeer implements Stack.
func (s *SimStack) ConnectedPeer() (PeerID, Address) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.connPeer, s.connAddr
}

// RequestDeviceName implements Stack. The name arrives on the next Run.
func (s *SimStack) RequestDeviceName(done func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nameDone = done
}

// ConnectedName implements Stack.
func (s *SimStack) ConnectedName() Name {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.connName
}

// SendPasskey implements Stack.
func (s *SimStack) SendPasskey(pin [6]byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.passkeys = append(s.passkeys, pin)
	return nil
}

// Passkeys returns the passkeys sent so far.
func (s *SimStack) Passkeys() [][6]byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([][6]byte(nil), s.passkeys...)
}

// TakeSecurityEvent implements Stack.
func (s *SimStack) TakeSecurityEvent() SecurityEvent {
	s.lock.Lock()
	defer s.lock.Unlock()
	ev := s.security
	s.security = SecurityNone
	return ev
}

// UpdateBatteryLevel implements Stack.
func (s *SimStack) UpdateBatteryLevel(level uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.battery = level
}

// BatteryLevel returns the level of the battery service.
func (s *SimStack) BatteryLevel() uint8 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.battery
}

// Run implements Stack.
func (s *SimStack) Run() {
	s.lock.Lock()
	done := s.nameDone
	s.nameDone = nil
	s.lock.Unlock()
	if done != nil {
		done()
	}
}

// Connect simulates a host connecting, bonding it if new.
func (s *SimStack) Connect(peer PeerID, addr Address, name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = simConnected
	s.connPeer, s.connAddr, s.connName = peer, addr, MakeName(name)
	for _, p := range s.peers {
		if p == peer {
			return
		}
	}
	s.peers = append(s.peers, peer)
}

// Timeout simulates advertising ending without a host.
func (s *SimStack) Timeout() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = simIdle
}

// RaiseSecurity simulates a security procedure event.
func (s *SimStack) RaiseSecurity(ev SecurityEvent) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.security = ev
}
