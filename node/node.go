// Package node wires the subsystems into a running ledger peer: world
// state and block storage, the on-demand ordering fabric, the YAC
// consensus gate, the gRPC surface and the runner loops between them.
package node

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"sync"

	"google.golang.org/grpc"

	"github.com/ryjones/iroha/consensus"
	"github.com/ryjones/iroha/crypto"
	"github.com/ryjones/iroha/db"
	"github.com/ryjones/iroha/event"
	"github.com/ryjones/iroha/future"
	"github.com/ryjones/iroha/ledger"
	"github.com/ryjones/iroha/ledgerpb"
	"github.com/ryjones/iroha/log"
	"github.com/ryjones/iroha/ordering"
	"github.com/ryjones/iroha/rpc"
	"github.com/ryjones/iroha/wsv"
)

// Node is the central controller of the ledger peer.
type Node struct {
	config *Config
	nodeID string
	seed   string

	database db.Database
	storage  *wsv.Storage
	applier  *ledger.Applier

	blockStore *ledger.BlockStore
	presence   *ledger.TxPresenceCache
	restorer   *ledger.Restorer

	osService   *ordering.Service
	connManager *ordering.ConnectionManager
	gate        *ordering.Gate

	voteStorage *consensus.VoteStorage
	yac         *consensus.Yac
	resultCache *consensus.ResultCache

	clients *rpc.ClientFactory
	server  *rpc.Server
	bus     *event.Bus
	metrics *Metrics

	// mu guards the round state shared between the proposal and
	// commit loops
	mu sync.Mutex
	// per-round candidate blocks built from validated proposals
	candidates   map[consensus.Round]*ledgerpb.Block
	currentRound consensus.Round
	ledgerState  *ledger.State

	batchFuture    chan *future.Batch
	txStatusFuture chan *future.TxStatus

	stopChan chan struct{}
}

// yacCrypto signs our votes with the node seed and verifies peers'
// votes by the multihash-typed pubkey they carry.
type yacCrypto struct {
	nodeID string
	seed   string
}

func (c *yacCrypto) Sign(hash *ledgerpb.YacHash) (*ledgerpb.Signature, error) {
	sig, err := crypto.Sign(c.seed, hash.Marshal())
	if err != nil {
		return nil, err
	}
	return &ledgerpb.Signature{Pubkey: c.nodeID, Signature: sig}, nil
}

func (c *yacCrypto) Verify(vote *ledgerpb.Vote) bool {
	return crypto.Verify(vote.Signature.Pubkey, vote.Signature.Signature, vote.Hash.Marshal())
}

// yacNetwork short-circuits votes to ourselves and sends the rest over
// the wire.
type yacNetwork struct {
	nodeID  string
	clients *rpc.ClientFactory
	local   func(votes []*ledgerpb.Vote)
}

func (n *yacNetwork) SendState(peer *ledgerpb.Peer, votes []*ledgerpb.Vote) error {
	if strings.EqualFold(peer.Pubkey, n.nodeID) {
		// own votes enter through OnState inside the gate already
		return nil
	}
	return n.clients.SendState(peer, votes)
}

// localOrderingAdapter keeps issuer traffic in-process when this node
// plays the role.
type localOrderingAdapter struct {
	svc *ordering.Service
}

func (a *localOrderingAdapter) OnBatches(batches []*ledgerpb.Batch) error {
	a.svc.OnBatches(batches)
	return nil
}

func (a *localOrderingAdapter) OnRequestProposal(round consensus.Round) (*ledgerpb.Proposal, error) {
	return a.svc.OnRequestProposal(round), nil
}

// notificationFactory resolves a peer to the local service or a remote
// client.
type notificationFactory struct {
	nodeID string
	local  ordering.OdOsNotification
	remote *rpc.ClientFactory
}

func (f *notificationFactory) Create(peer *ledgerpb.Peer) (ordering.OdOsNotification, error) {
	if strings.EqualFold(peer.Pubkey, f.nodeID) {
		return f.local, nil
	}
	return f.remote.Create(peer)
}

// NewNode builds the full wiring, leaves first.
func NewNode(conf *Config) *Node {
	if conf.LogLevel != "" {
		log.SetLevel(conf.LogLevel)
	}

	database := db.NewBoltDB(conf.DBPath)
	storage := wsv.NewStorage(database)
	applier := ledger.NewApplier(storage)
	blockStore := ledger.NewBlockStore(database)
	presence := ledger.NewTxPresenceCache(database, 10000)

	restorer := ledger.NewRestorer(blockStore, applier)
	restorer.WaitForNewBlocks = conf.WaitForNewBlocks

	bus := event.NewBus()
	clients := rpc.NewClientFactory()

	osService := ordering.NewService(&ordering.ServiceContext{
		TransactionLimit: conf.TransactionLimit,
		Cache:            ordering.NewBatchCache(),
		Presence:         presence,
	})
	factory := &notificationFactory{
		nodeID: conf.NodeID,
		local:  &localOrderingAdapter{svc: osService},
		remote: clients,
	}
	connManager := ordering.NewConnectionManager(factory)
	gate := ordering.NewGate(&ordering.GateContext{
		Manager:        connManager,
		Bus:            bus,
		RequestTimeout: conf.ProposalRequestTimeout,
	})

	voteStorage := consensus.NewVoteStorage(&consensus.VoteStorageContext{
		Model:      conf.ConsistencyModel,
		PeersCount: 1,
	})
	network := &yacNetwork{nodeID: conf.NodeID, clients: clients}
	yac := consensus.NewYac(&consensus.YacContext{
		Storage: voteStorage,
		Crypto:  &yacCrypto{nodeID: conf.NodeID, seed: conf.Seed},
		Network: network,
		Timer:   consensus.NewTimer(conf.ProposalRequestTimeout * 2),
		Bus:     bus,
	})
	network.local = yac.OnState

	batchFuture := make(chan *future.Batch)
	txStatusFuture := make(chan *future.TxStatus)

	node := &Node{
		config:         conf,
		nodeID:         conf.NodeID,
		seed:           conf.Seed,
		database:       database,
		storage:        storage,
		applier:        applier,
		blockStore:     blockStore,
		presence:       presence,
		restorer:       restorer,
		osService:      osService,
		connManager:    connManager,
		gate:           gate,
		voteStorage:    voteStorage,
		yac:            yac,
		resultCache:    consensus.NewResultCache(16),
		clients:        clients,
		bus:            bus,
		metrics:        NewMetrics(),
		candidates:     make(map[consensus.Round]*ledgerpb.Block),
		batchFuture:    batchFuture,
		txStatusFuture: txStatusFuture,
		stopChan:       make(chan struct{}),
	}

	node.server = rpc.NewServer(&rpc.ServerContext{
		Ordering:       osService,
		Consensus:      yac,
		Blocks:         blockStore,
		BatchFuture:    batchFuture,
		TxStatusFuture: txStatusFuture,
	})

	return node
}

// Start boots storage, replays missing blocks into the world state
// and runs the task loops until Stop.
func (n *Node) Start() {
	if err := n.bootstrap(); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	go n.serveNode()
	go n.proposalLoop()
	go n.commitLoop()
	go n.ingressLoop()

	if n.config.MetricsPort != "" {
		n.metrics.Serve(n.config.MetricsPort)
	}

	n.mu.Lock()
	round := n.currentRound
	n.mu.Unlock()
	n.startRound(round)

	<-n.stopChan
}

// Stop signals every loop to finish and drains the gates.
func (n *Node) Stop() {
	close(n.stopChan)
	n.gate.Stop()
	n.connManager.Stop()
	n.clients.Close()
	n.database.Close()
}

// bootstrap applies the genesis block on an empty chain and replays
// the block store into the world state.
func (n *Node) bootstrap() error {
	height, err := n.blockStore.Height()
	if err != nil {
		return err
	}
	if height == 0 && n.config.GenesisPath != "" {
		genesis, err := loadGenesis(n.config.GenesisPath)
		if err != nil {
			return err
		}
		if err := n.blockStore.Put(genesis); err != nil {
			return err
		}
		log.Infow("genesis block stored", "hash", ledgerpb.BlockHash(genesis))
	}

	if err := n.restorer.RestoreOnce(); err != nil {
		return err
	}

	state, err := ledger.SnapshotState(n.blockStore, n.applier)
	if err != nil {
		return err
	}
	n.mu.Lock()
	n.ledgerState = state
	n.currentRound = consensus.Round{BlockRound: state.Height, RejectRound: ordering.FirstRejectRound}
	n.mu.Unlock()
	n.metrics.BlockHeight.Set(float64(state.Height))
	log.Infow("node bootstrapped", "height", state.Height, "peers", len(state.Peers))
	return nil
}

// loadGenesis reads the genesis block from its JSON file.
func loadGenesis(path string) (*ledgerpb.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block := &ledgerpb.Block{}
	if err := json.Unmarshal(raw, block); err != nil {
		return nil, err
	}
	return block, nil
}

// serveNode runs the gRPC server until stop.
func (n *Node) serveNode() {
	listener, err := net.Listen("tcp", n.config.Port)
	if err != nil {
		log.Fatal(err)
	}
	s := grpc.NewServer()
	n.server.Register(s)
	log.Infof("start to serve gRPC server on %s", n.config.Port)
	go s.Serve(listener)

	<-n.stopChan
	s.GracefulStop()
}

// ingressLoop admits client batches and answers status queries.
func (n *Node) ingressLoop() {
	for {
		select {
		case bf := <-n.batchFuture:
			if n.presence.AlreadyProcessed(bf.Batch) {
				bf.Respond(errAlreadyProcessed)
				continue
			}
			n.osService.OnBatches([]*ledgerpb.Batch{bf.Batch})
			n.gate.PropagateBatch(bf.Batch)
			n.metrics.PendingTxs.Set(float64(n.osService.Cache().TxCount()))
			bf.Respond(nil)
		case sf := <-n.txStatusFuture:
			status, _ := n.presence.Status(sf.TxHash)
			sf.Status = status
			sf.Respond(nil)
		case <-n.stopChan:
			log.Info("shutdown ingress loop")
			return
		}
	}
}

// proposalLoop turns ordering results into votes.
func (n *Node) proposalLoop() {
	proposals := n.bus.Subscribe(event.OnProposalResponse)
	for {
		select {
		case ev := <-proposals:
			pe, ok := ev.(ordering.ProposalEvent)
			if !ok {
				continue
			}
			n.voteOnProposal(pe)
		case <-n.stopChan:
			log.Info("shutdown proposal loop")
			return
		}
	}
}

// voteOnProposal builds the candidate block for the round and votes on
// its hashes; a missing proposal votes NoProposal.
func (n *Node) voteOnProposal(pe ordering.ProposalEvent) {
	hash := &ledgerpb.YacHash{
		BlockRound:  pe.Round.BlockRound,
		RejectRound: pe.Round.RejectRound,
	}
	if pe.Proposal != nil {
		valid, rejected, err := n.applier.ValidateProposal(pe.Proposal)
		if err != nil {
			log.Errorf("validate proposal failed: %v", err)
			return
		}
		n.mu.Lock()
		topHash := n.ledgerState.TopHash
		n.mu.Unlock()
		block := &ledgerpb.Block{
			Height:         pe.Proposal.Height,
			PrevBlockHash:  topHash,
			CreatedTime:    pe.Proposal.CreatedTime,
			Transactions:   valid,
			RejectedHashes: rejected,
		}
		sig, err := crypto.Sign(n.seed, block.PayloadBytes())
		if err != nil {
			log.Errorf("sign block failed: %v", err)
			return
		}
		block.Signatures = append(block.Signatures, &ledgerpb.Signature{Pubkey: n.nodeID, Signature: sig})

		n.mu.Lock()
		n.candidates[pe.Round] = block
		n.mu.Unlock()
		hash.ProposalHash = ledgerpb.ProposalHash(pe.Proposal)
		hash.BlockHash = ledgerpb.BlockHash(block)
	}
	n.yac.Vote(hash)
}

// commitLoop applies consensus outcomes and advances rounds.
func (n *Node) commitLoop() {
	commits := n.bus.Subscribe(event.OnCommit)
	for {
		select {
		case ev := <-commits:
			switch msg := ev.(type) {
			case consensus.CommitMessage:
				n.metrics.RoundsTotal.Inc()
				if msg.Hash.BlockHash == "" {
					// the cluster agreed there was nothing to order
					n.metrics.RoundsRejects.Inc()
					n.advanceRound(ordering.SyncNothing)
					continue
				}
				if err := n.commitBlock(msg); err != nil {
					log.Errorf("commit block failed: %v", err)
					n.advanceRound(ordering.SyncReject)
					continue
				}
				n.advanceRound(ordering.SyncCommit)
			case consensus.RejectMessage:
				n.metrics.RoundsTotal.Inc()
				n.metrics.RoundsRejects.Inc()
				n.advanceRound(ordering.SyncReject)
			}
		case <-n.stopChan:
			log.Info("shutdown commit loop")
			return
		}
	}
}

// commitBlock finds the voted block, stores it and mutates the world
// state.
func (n *Node) commitBlock(msg consensus.CommitMessage) error {
	block, err := n.findCommittedBlock(msg)
	if err != nil {
		return err
	}

	if err := n.blockStore.Put(block); err != nil {
		return err
	}
	if err := n.applier.ApplyBlock(block); err != nil {
		return err
	}
	if err := n.presence.MarkBlock(block); err != nil {
		return err
	}

	hashes := make(map[string]struct{})
	for _, tx := range block.Transactions {
		hashes[ledgerpb.TxHash(tx)] = struct{}{}
	}
	for _, h := range block.RejectedHashes {
		hashes[h] = struct{}{}
	}
	n.osService.OnTxsCommitted(hashes)

	n.resultCache.Put(msg.Hash.BlockHash, block)
	n.mu.Lock()
	delete(n.candidates, msg.Round)
	n.mu.Unlock()

	n.metrics.BlockHeight.Set(float64(block.Height))
	n.metrics.TxsCommitted.Add(float64(len(block.Transactions)))
	n.metrics.PendingTxs.Set(float64(n.osService.Cache().TxCount()))
	log.Infow("block committed", "height", block.Height, "txs", len(block.Transactions))
	return nil
}

// findCommittedBlock resolves the winning hash: our own candidate
// first, then the result cache, then any voter peer.
func (n *Node) findCommittedBlock(msg consensus.CommitMessage) (*ledgerpb.Block, error) {
	n.mu.Lock()
	candidate := n.candidates[msg.Round]
	peers := n.ledgerState.Peers
	n.mu.Unlock()

	if candidate != nil && ledgerpb.BlockHash(candidate) == msg.Hash.BlockHash {
		return candidate, nil
	}
	if block, ok := n.resultCache.Get(msg.Hash.BlockHash); ok {
		return block, nil
	}

	peersByKey := make(map[string]*ledgerpb.Peer)
	for _, p := range peers {
		peersByKey[strings.ToLower(p.Pubkey)] = p
	}
	for _, vote := range msg.Votes {
		peer, ok := peersByKey[strings.ToLower(vote.Signature.Pubkey)]
		if !ok {
			continue
		}
		block, err := n.clients.RequestBlock(peer, msg.Hash.BlockHash)
		if err != nil || block == nil {
			continue
		}
		if ledgerpb.BlockHash(block) == msg.Hash.BlockHash {
			return block, nil
		}
	}
	return nil, errBlockUnavailable
}

// advanceRound moves to the next round and restarts the gates.
func (n *Node) advanceRound(outcome ordering.SyncOutcome) {
	state, err := ledger.SnapshotState(n.blockStore, n.applier)
	if err != nil {
		log.Errorf("snapshot ledger state failed: %v", err)
		return
	}
	n.mu.Lock()
	n.ledgerState = state
	n.currentRound = ordering.NextRound(outcome, n.currentRound)
	round := n.currentRound
	n.mu.Unlock()
	n.startRound(round)
}

// startRound computes the round's peers and kicks ordering and
// consensus.
func (n *Node) startRound(round consensus.Round) {
	n.mu.Lock()
	peers := n.ledgerState.Peers
	prevHash := n.ledgerState.PrevHash
	topHash := n.ledgerState.TopHash
	n.mu.Unlock()
	if len(peers) == 0 {
		log.Warn("no peers in ledger state, round stalled")
		return
	}

	selected := ordering.SelectPeers(peers, prevHash, topHash, round)
	n.osService.OnCollaborationOutcome(round)

	order, err := consensus.NewClusterOrdering(peers)
	if err != nil {
		log.Errorf("cluster ordering failed: %v", err)
		return
	}
	n.yac.StartRound(round, order)

	go n.gate.ProcessRoundSwitch(ordering.RoundSwitch{Round: round, Peers: selected})
}
