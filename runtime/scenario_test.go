package runtime

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/engine"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/resource"
)

// testKey returns an armored secret key block and its fingerprint.
func testKey(t *testing.T) (string, string) {
	t.Helper()
	e, err := openpgp.NewEntity("Test User", "", "test@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SerializePrivateWithoutSigning(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return buf.String(), strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint))
}

func newEngineRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := New(engine.New(engine.Options{HomeDir: t.TempDir()}), Options{Workers: 2})
	t.Cleanup(func() { rt.Close() })
	return rt
}

// openContext creates an armored OpenPGP context holding one secret key.
func openContext(t *testing.T, rt *Runtime) (resource.Handle, resource.Handle) {
	t.Helper()
	ctx := context.Background()
	block, fpr := testKey(t)

	h := mustOK(t)(rt.FromProtocol(ctx, codec.Atom("open_pgp"))).(resource.Handle)
	mustOK(t)(rt.SetArmor(ctx, h, true))
	if armored := mustOK(t)(rt.Armor(ctx, h)); armored != true {
		t.Fatalf("armor = %v", armored)
	}

	rep := mustOK(t)(rt.Import(ctx, h, block)).(codec.ImportReport)
	if rep.Imported != 1 || rep.SecretImported != 1 {
		t.Fatalf("import report = %+v", rep)
	}

	key := mustOK(t)(rt.FindKey(ctx, h, fpr)).(resource.Handle)
	return h, key
}

func TestScenarioEncryptDecrypt(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h, key := openContext(t, rt)

	info := mustOK(t)(rt.KeyInfo(ctx, key)).(codec.KeyReport)
	if _, named := info.Validity.(codec.Atom); !named {
		t.Errorf("validity = %#v, want a symbol", info.Validity)
	}
	if info.Validity != codec.Atom("ultimate") || !info.Secret {
		t.Errorf("key = %+v", info)
	}

	ct := mustOK(t)(rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "hello", []any{})).(string)
	if !strings.HasPrefix(ct, "-----BEGIN PGP MESSAGE-----") {
		t.Errorf("ciphertext = %q", ct)
	}
	if pt := mustOK(t)(rt.Decrypt(ctx, h, ct)); pt != "hello" {
		t.Errorf("plaintext = %v", pt)
	}

	ct = mustOK(t)(rt.SignAndEncryptWithFlags(ctx, h, []resource.Handle{key}, "signed hello",
		[]any{codec.Atom("always_trust"), codec.Atom("no_compress")})).(string)
	if pt := mustOK(t)(rt.DecryptWithFlags(ctx, h, ct, []any{codec.Atom("verify")})); pt != "signed hello" {
		t.Errorf("plaintext = %v", pt)
	}
}

func TestScenarioBinaryCiphertextIsDecodeFailure(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h, key := openContext(t, rt)
	mustOK(t)(rt.SetArmor(ctx, h, false))

	res, err := rt.EncryptWithFlags(ctx, h, []resource.Handle{key}, "hello", []any{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindDecode {
		t.Errorf("result = %s", res)
	}
}

func TestScenarioDetachedSignVerify(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h, _ := openContext(t, rt)

	sig := mustOK(t)(rt.SignWithMode(ctx, h, codec.Atom("detached"), "some data")).(string)
	rep := mustOK(t)(rt.VerifyOpaque(ctx, h, sig, "some data")).(codec.VerificationReport)
	if len(rep.Signatures) != 1 {
		t.Fatalf("signatures = %d", len(rep.Signatures))
	}
	s := rep.Signatures[0]
	if _, named := s.Validity.(codec.Atom); !named {
		t.Errorf("validity = %#v, want a symbol", s.Validity)
	}
	if s.Status != nil {
		t.Errorf("status = %s", *s.Status)
	}
	if s.PubkeyAlgo != codec.Atom("eddsa") {
		t.Errorf("pubkey algo = %#v", s.PubkeyAlgo)
	}
	for _, n := range s.Notations {
		if n.Name == nil || n.HumanReadable || n.Value == nil {
			continue
		}
		if _, err := hex.DecodeString(*n.Value); err != nil {
			t.Errorf("notation %s value %q is not hex", *n.Name, *n.Value)
		}
	}

	rep = mustOK(t)(rt.VerifyOpaque(ctx, h, sig, "other data")).(codec.VerificationReport)
	if st := rep.Signatures[0].Status; st == nil || *st != "Bad signature" {
		t.Errorf("tampered status = %v", st)
	}
}

func TestScenarioClearSign(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h, _ := openContext(t, rt)

	signed := mustOK(t)(rt.SignWithMode(ctx, h, codec.Atom("clear"), "plain text\n")).(string)
	if !strings.Contains(signed, "plain text") {
		t.Errorf("clear signature = %q", signed)
	}
	rep := mustOK(t)(rt.VerifyOpaque(ctx, h, signed, "")).(codec.VerificationReport)
	if len(rep.Signatures) != 1 || rep.Signatures[0].Status != nil {
		t.Errorf("report = %+v", rep)
	}
}

func TestScenarioDeleteKey(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h, key := openContext(t, rt)

	res, err := rt.DeleteKey(ctx, h, key)
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindNative || res.Message() != "Conflict: secret key present" {
		t.Errorf("delete public = %s", res)
	}
	mustOK(t)(rt.DeleteSecretKey(ctx, h, key))

	// The key handle is a snapshot and outlives the keyring entry.
	mustOK(t)(rt.KeyInfo(ctx, key))
	mustOK(t)(rt.Release(ctx, key))
}

func TestScenarioEngineConfig(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h := mustOK(t)(rt.FromProtocol(ctx, codec.Atom("open_pgp"))).(resource.Handle)

	info := mustOK(t)(rt.EngineInfo(ctx, h)).(codec.EngineInfoReport)
	if info.Protocol != codec.Atom("open_pgp") || info.Version == nil || *info.Version != engine.Version {
		t.Errorf("engine info = %+v", info)
	}

	res, err := rt.SetEnginePath(ctx, h, "/no/such/engine")
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != envelope.KindNative {
		t.Errorf("set_engine_path = %s", res)
	}

	mustOK(t)(rt.SetPinentryMode(ctx, h, codec.Atom("loopback")))
	if mode := mustOK(t)(rt.PinentryMode(ctx, h)); mode != codec.Atom("loopback") {
		t.Errorf("pinentry mode = %#v", mode)
	}

	res, err = rt.SetFlag(ctx, h, "no-such-flag", "1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message() != "Unknown name" {
		t.Errorf("set_flag = %s", res)
	}

	mustOK(t)(rt.SetTextMode(ctx, h, true))
	mustOK(t)(rt.SetOffline(ctx, h, true))
	if v := mustOK(t)(rt.Offline(ctx, h)); v != true {
		t.Errorf("offline = %v", v)
	}
	if v := mustOK(t)(rt.TextMode(ctx, h)); v != true {
		t.Errorf("text mode = %v", v)
	}
}

func TestScenarioUnsupportedProtocol(t *testing.T) {
	rt := newEngineRuntime(t)
	ctx := context.Background()
	h := mustOK(t)(rt.FromProtocol(ctx, codec.Atom("cms"))).(resource.Handle)

	res, err := rt.FindSecretKey(ctx, h, "DEADBEEF")
	if err != nil {
		t.Fatal(err)
	}
	if res.Message() != "Unsupported protocol" {
		t.Errorf("result = %s", res)
	}
}
