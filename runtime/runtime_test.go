package runtime

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/resource"
)

// fakeContext implements only what the tests call; any other method panics
// on the nil embedded interface.
type fakeContext struct {
	native.Context
	flags     map[string]string
	importErr error
	output    []byte
	verified  native.VerificationResult
	entered   chan struct{}
	block     chan struct{}
	protocol  native.Protocol
	calls     atomic.Int32
	closed    atomic.Int32
	inFlight  atomic.Int32
	overlap   atomic.Bool
	sawFlags  atomic.Uint32
	armor     bool
}

func newFake(p native.Protocol) *fakeContext {
	return &fakeContext{protocol: p, flags: make(map[string]string)}
}

func (f *fakeContext) enter() func() {
	f.calls.Add(1)
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeContext) Protocol() native.Protocol { return f.protocol }
func (f *fakeContext) Armor() bool               { return f.armor }
func (f *fakeContext) SetArmor(yes bool)         { f.armor = yes }

func (f *fakeContext) Flag(name string) (string, bool) {
	v, ok := f.flags[name]
	return v, ok
}

func (f *fakeContext) SetFlag(name, value string) error {
	f.flags[name] = value
	return nil
}

func (f *fakeContext) Import(data []byte) (native.ImportResult, error) {
	defer f.enter()()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	time.Sleep(time.Millisecond)
	if f.importErr != nil {
		return native.ImportResult{}, f.importErr
	}
	return native.ImportResult{Considered: 1}, nil
}

func (f *fakeContext) GetKey(fpr string, secret bool) (native.Key, error) {
	defer f.enter()()
	if fpr != "AAAA" {
		return native.Key{}, native.NewError(native.CodeNotFound)
	}
	return native.Key{Fingerprint: fpr, Validity: native.ValidityFull}, nil
}

func (f *fakeContext) Encrypt(recipients []native.Key, plaintext []byte, flags native.EncryptFlags) ([]byte, error) {
	defer f.enter()()
	f.sawFlags.Store(uint32(flags))
	return f.output, nil
}

func (f *fakeContext) VerifyOpaque(signature, data []byte) (native.VerificationResult, error) {
	defer f.enter()()
	return f.verified, nil
}

func (f *fakeContext) Close() error {
	f.closed.Add(1)
	return nil
}

type fakeFactory struct {
	err      error
	mu       sync.Mutex
	contexts []*fakeContext
}

func (ff *fakeFactory) New(p native.Protocol) (native.Context, error) {
	if ff.err != nil {
		return nil, ff.err
	}
	fc := newFake(p)
	ff.mu.Lock()
	ff.contexts = append(ff.contexts, fc)
	ff.mu.Unlock()
	return fc, nil
}

func newFakeRuntime(t *testing.T) (*Runtime, *fakeFactory) {
	t.Helper()
	ff := &fakeFactory{}
	rt := New(ff, Options{Workers: 4, QueueSize: 16})
	t.Cleanup(func() { rt.Close() })
	return rt, ff
}

// mustOK returns a checker for a call result that must succeed. Use it as
// mustOK(t)(rt.Op(...)).
func mustOK(t *testing.T) func(envelope.Result, error) any {
	return func(res envelope.Result, err error) any {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected argument error: %v", err)
		}
		if !res.IsOK() {
			t.Fatalf("unexpected failure: %s", res)
		}
		return res.Value
	}
}

func wantArgError(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	be, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("err = %v (%T), want *errors.Error", err, err)
	}
	if be.Kind != kind {
		t.Fatalf("kind = %s, want %s (%v)", be.Kind, kind, err)
	}
}

func openFake(t *testing.T, rt *Runtime, ff *fakeFactory) (resource.Handle, *fakeContext) {
	t.Helper()
	v := mustOK(t)(rt.FromProtocol(context.Background(), codec.Atom("open_pgp")))
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return v.(resource.Handle), ff.contexts[len(ff.contexts)-1]
}

func TestOperationsMatchDispatchTable(t *testing.T) {
	rt, _ := newFakeRuntime(t)
	if got, want := rt.Operations(), dispatch.Operations(); !reflect.DeepEqual(got, want) {
		t.Errorf("operations = %v, want %v", got, want)
	}
}

func TestCallArgumentErrors(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)

	_, err := rt.Call(ctx, "no_such_op")
	wantArgError(t, err, errors.KindNotFound)

	_, err = rt.Call(ctx, "armor")
	wantArgError(t, err, errors.KindArity)

	_, err = rt.Call(ctx, "armor", "not a handle")
	wantArgError(t, err, errors.KindTypeMismatch)

	_, err = rt.Call(ctx, "armor", resource.Handle(999))
	wantArgError(t, err, errors.KindInvalidHandle)

	_, err = rt.Call(ctx, "set_armor", h, "yes")
	wantArgError(t, err, errors.KindTypeMismatch)

	_, err = rt.FromProtocol(ctx, codec.Atom("carrier_pigeon"))
	wantArgError(t, err, errors.KindInvalidEnum)

	_, err = rt.FromProtocol(ctx, codec.Tuple{codec.Atom("other")})
	wantArgError(t, err, errors.KindInvalidVariant)

	if fc.calls.Load() != 0 {
		t.Errorf("native calls = %d", fc.calls.Load())
	}
}

func TestEmptyRecipientsNeverReachEngine(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)

	_, err := rt.EncryptWithFlags(ctx, h, nil, "hello", []any{})
	wantArgError(t, err, errors.KindEmptyRecipients)

	_, err = rt.SignAndEncryptWithFlags(ctx, h, []resource.Handle{}, "hello", []any{})
	wantArgError(t, err, errors.KindEmptyRecipients)

	// A context handle is not a key handle.
	_, err = rt.EncryptWithFlags(ctx, h, []resource.Handle{h}, "hello", []any{})
	wantArgError(t, err, errors.KindInvalidHandle)

	if fc.calls.Load() != 0 {
		t.Errorf("native calls = %d", fc.calls.Load())
	}
}

func TestFlagDecodeFailsFast(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)

	key := mustOK(t)(rt.FindKey(ctx, h, "AAAA")).(resource.Handle)
	before := fc.calls.Load()

	_, err := rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "x",
		[]any{codec.Atom("always_trust"), codec.Atom("bogus")})
	wantArgError(t, err, errors.KindInvalidFlag)

	_, err = rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "x",
		[]any{codec.Atom("always_trust"), codec.Other(0xFFFF0000)})
	wantArgError(t, err, errors.KindInvalidFlag)
	if fc.calls.Load() != before {
		t.Error("engine called despite bad flag")
	}

	mustOK(t)(rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "x", []any{codec.Atom("always_trust")}))
	if got := native.EncryptFlags(fc.sawFlags.Load()); got != native.EncryptAlwaysTrust {
		t.Errorf("engine saw flags %#x", got)
	}
}

func TestVerifyBinaryNotation(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)
	fc.verified = native.VerificationResult{
		Signatures: []native.Signature{{
			Fingerprint: []byte("AAAA"),
			Summary:     native.SigSumValid,
			Notations: []native.SignatureNotation{
				{Name: []byte("salt@notations.openpgpjs.org"), Value: []byte{0x8f, 0xff, 0x00, 0xc3}},
				{Name: []byte("note@example.org"), Value: []byte("hello"), HumanReadable: true},
			},
		}},
	}

	rep := mustOK(t)(rt.VerifyOpaque(ctx, h, "sig", "data")).(codec.VerificationReport)
	if len(rep.Signatures) != 1 || len(rep.Signatures[0].Notations) != 2 {
		t.Fatalf("report = %+v", rep)
	}
	notes := rep.Signatures[0].Notations
	if v := notes[0].Value; v == nil || *v != "8fff00c3" {
		t.Errorf("binary value = %v", v)
	}
	if v := notes[1].Value; v == nil || *v != "hello" {
		t.Errorf("text value = %v", v)
	}

	fc.verified.Signatures[0].Notations[1].Value = []byte{0xc3, 0x28}
	res, err := rt.VerifyOpaque(ctx, h, "sig", "data")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindDecode {
		t.Errorf("invalid text notation = %s", res)
	}
}

func TestGetFlagNotSet(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, _ := openFake(t, rt, ff)

	res, err := rt.GetFlag(ctx, h, "trust-model")
	if err != nil {
		t.Fatal(err)
	}
	if res.IsOK() || res.Kind != envelope.KindNotSet || res.Value != codec.AtomNotSet {
		t.Errorf("result = %+v", res)
	}

	mustOK(t)(rt.SetFlag(ctx, h, "trust-model", "always"))
	if v := mustOK(t)(rt.GetFlag(ctx, h, "trust-model")); v != "always" {
		t.Errorf("flag = %v", v)
	}
}

func TestNativeErrorsInEnvelope(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, _ := openFake(t, rt, ff)

	res, err := rt.FindKey(ctx, h, "BBBB")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindNative || res.Message() != "Not found" {
		t.Errorf("result = %+v", res)
	}
}

func TestDecodeFailure(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)
	fc.output = []byte{0xff, 0xfe, 0x00}

	key := mustOK(t)(rt.FindKey(ctx, h, "AAAA")).(resource.Handle)
	res, err := rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "x", []any{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindDecode || res.Message() != envelope.DecodeSentinel {
		t.Errorf("result = %+v", res)
	}

	fc.output = []byte("ok")
	if v := mustOK(t)(rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "x", []any{})); v != "ok" {
		t.Errorf("output = %v", v)
	}
}

func TestInitFailed(t *testing.T) {
	ff := &fakeFactory{err: native.Errorf(native.CodeInvEngine, "no engine")}
	rt := New(ff, Options{})
	defer rt.Close()

	res, err := rt.FromProtocol(context.Background(), codec.Atom("open_pgp"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindInitFailed || res.Message() != "Invalid crypto engine: no engine" {
		t.Errorf("result = %+v", res)
	}
}

func TestEngineUnavailableInvalidatesHandle(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)
	fc.importErr = native.Errorf(native.CodeNotOperational, "engine gone")

	var invalidated atomic.Int32
	rt.Handles().Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventInvalidated && e.Handle == h {
			invalidated.Add(1)
		}
	}))

	res, err := rt.Import(ctx, h, "keys")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindNative {
		t.Errorf("first result = %+v", res)
	}

	res, err = rt.Armor(ctx, h)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindEngineUnavailable || res.Message() != envelope.UnavailableMessage {
		t.Errorf("later result = %+v", res)
	}
	if n := invalidated.Load(); n != 1 {
		t.Errorf("invalidation events = %d, want 1", n)
	}
}

func TestSameHandleCallsSerialize(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rt.Import(ctx, h, "keys")
			if err != nil || !res.IsOK() {
				t.Errorf("import = %s, %v", res, err)
			}
		}()
	}
	wg.Wait()

	if fc.overlap.Load() {
		t.Error("engine calls on one context overlapped")
	}
	if fc.calls.Load() != 16 {
		t.Errorf("calls = %d", fc.calls.Load())
	}
}

func TestReleaseWhileInFlight(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	ctx := context.Background()
	h, fc := openFake(t, rt, ff)
	fc.entered = make(chan struct{}, 1)
	fc.block = make(chan struct{})

	done := make(chan envelope.Result)
	go func() {
		res, _ := rt.Import(ctx, h, "keys")
		done <- res
	}()
	<-fc.entered

	mustOK(t)(rt.Release(ctx, h))
	if fc.closed.Load() != 0 {
		t.Fatal("context closed while a call was running")
	}
	_, err := rt.Armor(ctx, h)
	wantArgError(t, err, errors.KindInvalidHandle)

	close(fc.block)
	if res := <-done; !res.IsOK() {
		t.Errorf("in-flight call = %s", res)
	}
	if fc.closed.Load() != 1 {
		t.Errorf("closed = %d after last call returned", fc.closed.Load())
	}

	_, err = rt.Release(ctx, h)
	wantArgError(t, err, errors.KindInvalidHandle)
}

func TestCancelledBeforeDispatch(t *testing.T) {
	rt, ff := newFakeRuntime(t)
	h, fc := openFake(t, rt, ff)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Import(ctx, h, "keys")
	wantArgError(t, err, errors.KindCancelled)
	if fc.calls.Load() != 0 {
		t.Error("cancelled call reached the engine")
	}

	// Inline calls do not consult the dispatcher queue.
	mustOK(t)(rt.Armor(ctx, h))
}

func TestOtherProtocolRoundTrip(t *testing.T) {
	rt, _ := newFakeRuntime(t)
	ctx := context.Background()

	h := mustOK(t)(rt.FromProtocol(ctx, codec.Tuple{codec.Atom("other"), 9999})).(resource.Handle)
	got := mustOK(t)(rt.Protocol(ctx, h))
	if !reflect.DeepEqual(got, codec.Other(9999)) {
		t.Errorf("protocol = %#v", got)
	}
}

func TestCloseReleasesHandles(t *testing.T) {
	ff := &fakeFactory{}
	rt := New(ff, Options{})
	h, fc := openFake(t, rt, ff)

	if err := rt.Close(); err != nil {
		t.Fatal(err)
	}
	if fc.closed.Load() != 1 {
		t.Errorf("closed = %d", fc.closed.Load())
	}
	_, err := rt.Armor(context.Background(), h)
	wantArgError(t, err, errors.KindClosed)
	if err := rt.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
