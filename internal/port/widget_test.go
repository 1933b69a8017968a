package port

import (
	"context"
	goerrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/bus/mocks"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

const svcName = "serial"

// hookRecorder collects every snapshot passed to the state-changed hook.
type hookRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (h *hookRecorder) record(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snaps = append(h.snaps, s)
}

func (h *hookRecorder) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snaps)
}

func (h *hookRecorder) last() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snaps[len(h.snaps)-1]
}

// newMockWidget binds a widget to gomock doubles that accept the four
// subscriptions.
func newMockWidget(t *testing.T, state any, opts ...Option) (*Widget, *mocks.MockRegistry) {
	t.Helper()
	ctrl := gomock.NewController(t)

	reg := mocks.NewMockRegistry(ctrl)
	sub := mocks.NewMockSubscriber(ctrl)
	s := mocks.NewMockSubscription(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), svcName).Return(bus.Service{Name: svcName, State: state}, nil)
	sub.EXPECT().Subscribe(gomock.Any(), svcName, gomock.Any(), gomock.Any()).Return(s, nil).Times(len(EventKinds()))
	s.EXPECT().Unsubscribe().Return(nil).AnyTimes()

	w, err := New(context.Background(), svcName, reg, sub, opts...)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, reg
}

func stateMsg(state any) bus.Message {
	return bus.Message{Name: svcName, Method: protocol.CallbackState, Data: []any{state}}
}

func TestNew_InitialSnapshot(t *testing.T) {
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName, LastPortName: "COM1"})

	snap := w.Snapshot()
	assert.Equal(t, svcName, w.Name())
	assert.Equal(t, svcName, snap.Service.Name)
	assert.False(t, snap.Display.Connected)
	assert.Equal(t, IconDisconnected, snap.Display.Icon)
	assert.Equal(t, ActionConnect, snap.Display.ActionLabel)
	assert.Equal(t, "COM1", snap.Display.Port)
	assert.Empty(t, snap.PossiblePorts)
	assert.Nil(t, snap.Stats)
}

func TestNew_JSONShapedState(t *testing.T) {
	w, _ := newMockWidget(t, map[string]any{
		"name":              svcName,
		"connectedPortName": "/dev/ttyUSB0",
	})

	snap := w.Snapshot()
	assert.True(t, snap.Display.Connected)
	assert.Equal(t, "/dev/ttyUSB0", snap.Display.Port)
	assert.Equal(t, ActionDisconnect, snap.Display.ActionLabel)
}

func TestNew_NilStateUsesName(t *testing.T) {
	w, _ := newMockWidget(t, nil)
	assert.Equal(t, svcName, w.Snapshot().Service.Name)
}

func TestNew_SubscribesEveryTopic(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	sub := mocks.NewMockSubscriber(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), svcName).Return(bus.Service{Name: svcName}, nil)

	var calls []any
	subs := make([]*mocks.MockSubscription, 0, 4)
	for _, topic := range []string{
		protocol.TopicPortNames,
		protocol.TopicRefresh,
		protocol.TopicState,
		protocol.TopicStats,
	} {
		s := mocks.NewMockSubscription(ctrl)
		subs = append(subs, s)
		calls = append(calls, sub.EXPECT().Subscribe(gomock.Any(), svcName, topic, gomock.Any()).Return(s, nil))
	}
	gomock.InOrder(calls...)

	w, err := New(context.Background(), svcName, reg, sub)
	require.NoError(t, err)

	for _, s := range subs {
		s.EXPECT().Unsubscribe().Return(nil).Times(1)
	}
	w.Close()
	w.Close()
}

func TestNew_ServiceNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	// No expectations: any subscribe call fails the test.
	sub := mocks.NewMockSubscriber(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), "ghost").
		Return(bus.Service{}, errors.New(errors.ErrServiceNotFound, "not registered", ""))

	w, err := New(context.Background(), "ghost", reg, sub)
	require.Error(t, err)
	assert.Nil(t, w)
	assert.True(t, errors.IsCode(err, errors.ErrServiceNotFound))
	assert.Contains(t, err.Error(), "ghost")
}

func TestNew_ResolveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	sub := mocks.NewMockSubscriber(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), svcName).Return(bus.Service{}, goerrors.New("connection refused"))

	_, err := New(context.Background(), svcName, reg, sub)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBus))
}

func TestNew_SubscribeFailureReleasesEarlierSubscriptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	sub := mocks.NewMockSubscriber(ctrl)
	s := mocks.NewMockSubscription(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), svcName).Return(bus.Service{Name: svcName}, nil)
	gomock.InOrder(
		sub.EXPECT().Subscribe(gomock.Any(), svcName, protocol.TopicPortNames, gomock.Any()).Return(s, nil),
		sub.EXPECT().Subscribe(gomock.Any(), svcName, protocol.TopicRefresh, gomock.Any()).Return(s, nil),
		sub.EXPECT().Subscribe(gomock.Any(), svcName, protocol.TopicState, gomock.Any()).Return(nil, goerrors.New("boom")),
	)
	s.EXPECT().Unsubscribe().Return(nil).Times(2)

	_, err := New(context.Background(), svcName, reg, sub)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBus))
}

func TestNew_BadStatePayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	reg := mocks.NewMockRegistry(ctrl)
	sub := mocks.NewMockSubscriber(ctrl)

	reg.EXPECT().Resolve(gomock.Any(), svcName).Return(bus.Service{Name: svcName, State: "garbage"}, nil)

	_, err := New(context.Background(), svcName, reg, sub)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPayload))
}

func TestWidget_ConnectSendsOneMessage(t *testing.T) {
	w, reg := newMockWidget(t, protocol.SerialState{Name: svcName})

	reg.EXPECT().
		Send(gomock.Any(), svcName, protocol.MethodConnect, "/dev/ttyUSB0", 9600, 8, float64(1), "none").
		Return(nil).
		Times(1)

	require.NoError(t, w.Connect(context.Background(), "/dev/ttyUSB0", 9600, 8, 1, "none"))
}

func TestWidget_ConnectDoesNotChangeState(t *testing.T) {
	w, reg := newMockWidget(t, protocol.SerialState{Name: svcName})
	reg.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	before := w.Snapshot()
	require.NoError(t, w.Connect(context.Background(), "COM9", 115200, 8, 1, "even"))
	assert.Equal(t, before, w.Snapshot())
}

func TestWidget_ConnectBusError(t *testing.T) {
	w, reg := newMockWidget(t, protocol.SerialState{Name: svcName})
	reg.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(goerrors.New("bus down"))

	err := w.Connect(context.Background(), "COM1", 9600, 8, 1, "none")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBus))
}

func TestWidget_RefreshSendsNoArgs(t *testing.T) {
	w, reg := newMockWidget(t, protocol.SerialState{Name: svcName})
	reg.EXPECT().Send(gomock.Any(), svcName, protocol.MethodRefresh).Return(nil).Times(1)

	require.NoError(t, w.Refresh(context.Background()))
}

func TestWidget_DisconnectAndSettingsSendNothing(t *testing.T) {
	log := logger.NewBufferLogger()
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName}, WithLogger(log))

	before := w.Snapshot()
	w.Disconnect()
	w.Settings()

	assert.Equal(t, before, w.Snapshot())
	assert.True(t, log.Contains("debug", "disconnect"))
	assert.True(t, log.Contains("debug", "settings"))
}

func TestWidget_OnStateIsIdempotent(t *testing.T) {
	rec := &hookRecorder{}
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName}, WithOnStateChanged(rec.record))

	st := protocol.SerialState{Name: svcName, ConnectedPortName: "COM3", LastPortName: "COM3"}
	require.NoError(t, w.Dispatch(stateMsg(st)))
	first := w.Snapshot()
	require.NoError(t, w.Dispatch(stateMsg(st)))
	second := w.Snapshot()

	assert.Equal(t, first.Seq+1, second.Seq)
	second.Seq = first.Seq
	assert.Equal(t, first, second)
	assert.Equal(t, 2, rec.count())
}

func TestWidget_PortNamesAndRefreshAreEquivalent(t *testing.T) {
	ports := []string{"/dev/ttyS0", "/dev/ttyUSB0"}

	a, _ := newMockWidget(t, protocol.SerialState{Name: svcName})
	b, _ := newMockWidget(t, protocol.SerialState{Name: svcName})

	require.NoError(t, a.Dispatch(bus.Message{Method: protocol.CallbackPortNames, Data: []any{ports}}))
	require.NoError(t, b.Dispatch(bus.Message{Method: protocol.CallbackRefresh, Data: []any{ports}}))

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, ports, a.Snapshot().PossiblePorts)
}

func TestWidget_PortListReplacesNotMerges(t *testing.T) {
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName})

	require.NoError(t, w.Dispatch(bus.Message{Method: protocol.CallbackPortNames, Data: []any{[]string{"A", "B"}}}))
	require.NoError(t, w.Dispatch(bus.Message{Method: protocol.CallbackRefresh, Data: []any{[]string{"C"}}}))

	assert.Equal(t, []string{"C"}, w.Snapshot().PossiblePorts)
}

func TestWidget_UnknownEventLeavesStateAlone(t *testing.T) {
	rec := &hookRecorder{}
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName, LastPortName: "COM1"}, WithOnStateChanged(rec.record))

	before := w.Snapshot()
	err := w.Dispatch(bus.Message{Method: "onBogus", Data: []any{"x"}})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrUnrecognizedEvent))
	assert.Equal(t, before, w.Snapshot())
	assert.Zero(t, rec.count())
}

func TestWidget_BadPayloadLeavesStateAlone(t *testing.T) {
	rec := &hookRecorder{}
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName}, WithOnStateChanged(rec.record))

	before := w.Snapshot()
	err := w.Dispatch(bus.Message{Method: protocol.CallbackState})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPayload))
	assert.Equal(t, before, w.Snapshot())
	assert.Zero(t, rec.count())
}

func TestWidget_StatsDoNotTouchConnection(t *testing.T) {
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName, ConnectedPortName: "COM3"})

	before := w.Snapshot()
	stats := map[string]any{"connects": float64(4)}
	require.NoError(t, w.Dispatch(bus.Message{Method: protocol.CallbackStats, Data: []any{stats}}))

	after := w.Snapshot()
	assert.Equal(t, stats, after.Stats)
	assert.Equal(t, before.Display, after.Display)
	assert.Equal(t, before.Service, after.Service)
}

func TestWidget_ConnectThenDisconnectSequence(t *testing.T) {
	rec := &hookRecorder{}
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName}, WithOnStateChanged(rec.record))

	require.NoError(t, w.Dispatch(stateMsg(protocol.SerialState{Name: svcName, ConnectedPortName: "COM3"})))
	connected := rec.last()
	assert.True(t, connected.Display.Connected)
	assert.Equal(t, IconConnected, connected.Display.Icon)
	assert.Equal(t, ActionDisconnect, connected.Display.ActionLabel)
	assert.Equal(t, "COM3", connected.Display.Port)

	require.NoError(t, w.Dispatch(stateMsg(protocol.SerialState{Name: svcName, LastPortName: "COM3"})))
	disconnected := rec.last()
	assert.False(t, disconnected.Display.Connected)
	assert.Equal(t, IconDisconnected, disconnected.Display.Icon)
	assert.Equal(t, ActionConnect, disconnected.Display.ActionLabel)
	assert.Equal(t, "COM3", disconnected.Display.Port)
}

func TestWidget_SnapshotIsACopy(t *testing.T) {
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName})
	require.NoError(t, w.Dispatch(bus.Message{Method: protocol.CallbackPortNames, Data: []any{[]string{"COM1"}}}))

	snap := w.Snapshot()
	snap.PossiblePorts[0] = "mutated"

	assert.Equal(t, []string{"COM1"}, w.Snapshot().PossiblePorts)
}

func TestWidget_HookSeesCommittedState(t *testing.T) {
	var w *Widget
	var fromHook Snapshot
	w, _ = newMockWidget(t, protocol.SerialState{Name: svcName}, WithOnStateChanged(func(s Snapshot) {
		fromHook = w.Snapshot()
		assert.Equal(t, s, fromHook)
	}))

	require.NoError(t, w.Dispatch(bus.Message{Method: protocol.CallbackPortNames, Data: []any{[]string{"COM1"}}}))
	assert.Equal(t, []string{"COM1"}, fromHook.PossiblePorts)
}

func TestWidget_OverMemoryBus(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory(bus.WithMemoryLogger(logger.Noop()))
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, b.Register(ctx, svcName, protocol.SerialState{Name: svcName, Type: protocol.ServiceType}))

	var sent []bus.Message
	var sentMu sync.Mutex
	_, err := b.Listen(ctx, svcName, func(m bus.Message) {
		sentMu.Lock()
		sent = append(sent, m)
		sentMu.Unlock()
	})
	require.NoError(t, err)

	rec := &hookRecorder{}
	log := logger.NewBufferLogger()
	w, err := New(ctx, svcName, b, b, WithOnStateChanged(rec.record), WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(w.Close)

	require.NoError(t, b.Publish(ctx, svcName, protocol.TopicPortNames, []string{"/dev/ttyUSB0"}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"/dev/ttyUSB0"}, w.Snapshot().PossiblePorts)

	require.NoError(t, w.Connect(ctx, "/dev/ttyUSB0", 9600, 8, 1, "none"))
	require.Eventually(t, func() bool {
		sentMu.Lock()
		defer sentMu.Unlock()
		return len(sent) == 1
	}, time.Second, 5*time.Millisecond)
	sentMu.Lock()
	assert.Equal(t, protocol.MethodConnect, sent[0].Method)
	assert.Equal(t, []any{"/dev/ttyUSB0", 9600, 8, float64(1), "none"}, sent[0].Data)
	sentMu.Unlock()

	require.NoError(t, b.Publish(ctx, svcName, protocol.TopicState,
		protocol.SerialState{Name: svcName, ConnectedPortName: "/dev/ttyUSB0", LastPortName: "/dev/ttyUSB0"}))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	snap := w.Snapshot()
	assert.True(t, snap.Display.Connected)
	assert.Equal(t, "/dev/ttyUSB0", snap.Display.Port)

	require.NoError(t, b.Publish(ctx, svcName, protocol.TopicStats, map[string]any{"rx": 1}))
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.False(t, log.HasLevel("warn"))
}

func TestWidget_LogsUnhandledMethod(t *testing.T) {
	log := logger.NewBufferLogger()
	w, _ := newMockWidget(t, protocol.SerialState{Name: svcName}, WithLogger(log))

	w.onMessage(bus.Message{Name: svcName, Method: "onMystery"})
	assert.True(t, log.Contains("warn", "unhandled method onMystery"))

	w.onMessage(bus.Message{Name: svcName, Method: protocol.CallbackState})
	assert.True(t, log.HasLevel("error"))
}
