package main

import (
	"context"
	"flag"
	"time"

	"github.com/Setheum-Foundation/SignalMetadataKit/configs"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/address"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/fingerprint"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/groups"
	"github.com/Setheum-Foundation/SignalMetadataKit/protocol/message"
	"github.com/Setheum-Foundation/SignalMetadataKit/sealedsender"
	"github.com/Setheum-Foundation/SignalMetadataKit/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	logger = logrus.New()
)

// Runs a 1:1 exchange and a group message between three local devices over
// the store backend selected in the environment.
func main() {
	envFile := flag.String("env", ".env", "path to the .env file")
	flag.Parse()

	if err := configs.Load(*envFile); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(configs.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()
	backend, closeBackend, err := openBackend(ctx)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", configs.StoreBackend, err)
	}
	defer closeBackend()

	if err := run(ctx, backend); err != nil {
		logger.Fatalf("Demo failed: %v", err)
	}
	logger.Info("Demo finished")
}

func run(ctx context.Context, backend store.Backend) error {
	iss, err := newIssuer(uint64(time.Now().UnixMilli()))
	if err != nil {
		return err
	}

	devices := make([]*device, 0, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		d, err := newDevice(ctx, name, backend, uint32(i+1), iss)
		if err != nil {
			return err
		}
		devices = append(devices, d)
	}
	alice, bob, carol := devices[0], devices[1], devices[2]

	// 1. Pairwise sessions from alice to every member
	for _, peer := range []*device{bob, carol} {
		if err := alice.connect(ctx, peer); err != nil {
			return err
		}
	}

	// 2. 1:1 messages, the reply runs on the session bob just built
	if err := exchange(ctx, iss, alice, bob, "hello bob"); err != nil {
		return err
	}
	if err := exchange(ctx, iss, bob, alice, "hello alice"); err != nil {
		return err
	}

	number, err := fingerprint.SafetyNumber(alice.key.Pub, alice.addr, bob.key.Pub, bob.addr)
	if err != nil {
		return err
	}
	logger.Infof("Safety number of alice and bob: %s", fingerprint.Format(number))

	// 3. Hand out alice's sender key over the pairwise sessions
	distributionID := uuid.New()
	skdm, err := groups.NewDistributionMessage(ctx, alice.proto, distributionID, alice.store)
	if err != nil {
		return err
	}
	for _, member := range []*device{bob, carol} {
		sealed, err := alice.send(ctx, member, skdm.Serialize())
		if err != nil {
			return err
		}
		res, err := member.receive(ctx, sealed, iss)
		if err != nil {
			return err
		}
		received, err := message.ParseSenderKeyDistributionMessage(res.PaddedMessage)
		if err != nil {
			return err
		}
		if err := groups.ProcessDistributionMessage(ctx, alice.proto, received, member.store); err != nil {
			return err
		}
	}

	// 4. One group message, split per member the way a server would
	sent, err := alice.cipher.MultiRecipientEncrypt(ctx, []address.ProtocolAddress{bob.proto, carol.proto},
		[]byte("hello group"), alice.cert, []byte("demo-group"), distributionID, sealedsender.ContentHintImplicit)
	if err != nil {
		return err
	}
	split, err := sealedsender.SplitMultiRecipientMessage(sent)
	if err != nil {
		return err
	}
	byAddress := map[address.ProtocolAddress]*device{bob.proto: bob, carol.proto: carol}
	for _, part := range split {
		member := byAddress[part.Address]
		res, err := member.receive(ctx, part.Message, iss)
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{
			"to":   member.name,
			"from": res.Sender.String(),
			"type": res.MessageType.String(),
		}).Infof("Received %q", res.PaddedMessage)
	}
	return nil
}

func exchange(ctx context.Context, iss *issuer, from, to *device, text string) error {
	sealed, err := from.send(ctx, to, []byte(text))
	if err != nil {
		return err
	}
	res, err := to.receive(ctx, sealed, iss)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"to":   to.name,
		"from": from.name,
		"type": res.MessageType.String(),
	}).Infof("Received %q", res.PaddedMessage)
	return nil
}
