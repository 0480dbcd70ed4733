package main

import (
	"fmt"

	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/dogeorg/utxoindexer/pkg/deriver"
	"github.com/dogeorg/utxoindexer/pkg/doge"
	"github.com/dogeorg/utxoindexer/pkg/materializer"
	"github.com/dogeorg/utxoindexer/pkg/messages"
	"github.com/dogeorg/utxoindexer/pkg/projector"
	"github.com/dogeorg/utxoindexer/pkg/receiver"
	"github.com/dogeorg/utxoindexer/pkg/store"
	"github.com/dogeorg/utxoindexer/pkg/webapi"

	"github.com/tjstebbing/conductor"
)

func Server(conf giga.Config) {
	c := conductor.NewConductor(
		conductor.HookSignals(),
		conductor.Noisy(),
	)

	bus := giga.NewMessageBus()
	c.Service("MessageBus", bus)

	if conf.Logging.Filename != "" {
		eventLog := messages.SetupEventLog(&bus, conf.Logging.Filename, conf.Logging)
		c.Service("EventLog", eventLog.(messages.MessageLogger))
	}

	s, err := openStore(conf)
	if err != nil {
		panic(err)
	}

	proj := projector.NewTxProjector(s, conf.Indexer.BlockRewardLock, &bus)
	mat := materializer.NewWalletMaterializer(s, deriver.NewBIP32Deriver(&doge.MainChain), conf.Indexer.GapLimit, &bus)

	resolver := receiver.NewRPCResolver(conf.Chain.RPCHost, conf.Chain.RPCPort, conf.Chain.RPCUser, conf.Chain.RPCPass)
	zmq := receiver.NewZMQReceiver(conf.Chain.ZMQAddress, resolver, proj, &bus)
	c.Service("ZMQ Receiver", zmq)

	api := webapi.NewWebAPI(conf, s, mat, proj)
	c.Service("WebAPI", api)

	<-c.Start()
}

func openStore(conf giga.Config) (giga.Store, error) {
	switch conf.Store.Driver {
	case "postgres":
		return store.NewPostgresStore(conf.Store.ConnectionString)
	case "sqlite", "":
		return store.NewSQLiteStore(conf.Store.DBFile)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", conf.Store.Driver)
	}
}
