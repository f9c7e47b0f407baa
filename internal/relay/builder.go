package relay

import (
	"context"
	"fmt"
)

// BuiltTx is a relay transaction assembled on demand but not broadcast.
// The caller signs and submits it themselves.
type BuiltTx struct {
	Tx      []byte
	Address string
}

// BuildRelayTx collects the packet events of the given source transactions,
// classifies each packet, fetches proofs and returns one multiplexed
// transaction for the destination chain. Nothing is submitted.
func (o *Orchestrator) BuildRelayTx(ctx context.Context, srcTxIDs, timeoutTxIDs []string) (*BuiltTx, error) {
	var msgs []RelayMsg
	var maxHeight uint64
	clientID := o.cfg.SourceClientID

	if len(srcTxIDs) > 0 {
		events, err := o.src.Client.PacketEvents(ctx, srcTxIDs)
		if err != nil {
			return nil, fmt.Errorf("query source packet events: %w", err)
		}
		for _, ev := range events {
			if ev.Kind != EventSendPacket {
				continue
			}
			expired, err := o.packetExpired(ctx, ev.Packet)
			if err != nil {
				return nil, err
			}
			if expired {
				// expired sends cannot be received; they belong in a
				// timeout transaction toward the source
				continue
			}
			msg, height, err := o.buildMsg(ctx, &RelayTask{Packet: ev.Packet, Action: ActionRecv})
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, *msg)
			if height > maxHeight {
				maxHeight = height
			}
		}
	}

	// timeout tx ids are transactions on the destination chain whose sends
	// were never received; the built tx targets the source chain instead
	if len(timeoutTxIDs) > 0 {
		if len(msgs) > 0 {
			return nil, fmt.Errorf("recv and timeout messages target different chains and cannot share a transaction")
		}
		clientID = o.cfg.DestClientID
		events, err := o.dst.Client.PacketEvents(ctx, timeoutTxIDs)
		if err != nil {
			return nil, fmt.Errorf("query timeout packet events: %w", err)
		}
		for _, ev := range events {
			if ev.Kind != EventSendPacket {
				continue
			}
			msg, height, err := o.buildMsg(ctx, &RelayTask{Packet: ev.Packet, Action: ActionTimeout})
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, *msg)
			if height > maxHeight {
				maxHeight = height
			}
		}
	}

	if len(msgs) == 0 {
		return nil, fmt.Errorf("no relayable packets in the given transactions: %w", ErrPacketUnrelayable)
	}

	proofFrom, submitTo := o.route(msgs[0].Action)
	update, err := o.clientUpdateIfBehind(ctx, submitTo, proofFrom, clientID, maxHeight)
	if err != nil {
		return nil, err
	}

	tx, err := submitTo.Client.EncodeRelayTx(&RelayTx{
		ChainID:      submitTo.Client.ChainID(),
		ClientID:     clientID,
		UpdateClient: update,
		Msgs:         msgs,
	})
	if err != nil {
		return nil, fmt.Errorf("encode relay tx: %w", err)
	}
	return &BuiltTx{Tx: tx, Address: submitTo.Client.ContractAddress()}, nil
}

// buildMsg fetches the proof for a single message without touching the
// batching pipeline or the persisted task state.
func (o *Orchestrator) buildMsg(ctx context.Context, task *RelayTask) (*RelayMsg, uint64, error) {
	item, err := o.buildBatchItem(ctx, task)
	if err != nil {
		return nil, 0, err
	}
	return &item.msg, item.msg.Proof.Height, nil
}

// BuildCreateClientTx produces an unsigned transaction that instantiates on
// the destination chain a light client tracking the source chain.
func (o *Orchestrator) BuildCreateClientTx(ctx context.Context, params map[string]string) (*BuiltTx, error) {
	clientState, consensusState, err := o.src.Prover.InitialClientState(ctx)
	if err != nil {
		return nil, fmt.Errorf("build initial client state for %s: %w", o.cfg.SourceChainID, err)
	}
	tx, err := o.dst.Client.EncodeCreateClientTx(clientState, consensusState, params)
	if err != nil {
		return nil, fmt.Errorf("encode create client tx: %w", err)
	}
	return &BuiltTx{Tx: tx, Address: o.dst.Client.ContractAddress()}, nil
}

// PacketStatus is the on-chain lifecycle evidence of one packet: the
// commitment on the source chain and the receipt and acknowledgement on the
// destination chain.
type PacketStatus struct {
	Sequence         uint64 `json:"sequence"`
	CommitmentExists bool   `json:"commitment_exists"`
	ReceiptExists    bool   `json:"receipt_exists"`
	AckExists        bool   `json:"ack_exists"`
}

// PacketStatus proxies read-only packet queries straight to the pair's chain
// adapters.
func (o *Orchestrator) PacketStatus(ctx context.Context, sequence uint64) (*PacketStatus, error) {
	commitment, err := o.src.Client.PacketCommitment(ctx, o.cfg.DestClientID, sequence)
	if err != nil {
		return nil, fmt.Errorf("query packet commitment on %s: %w", o.cfg.SourceChainID, err)
	}
	receipt, err := o.dst.Client.HasPacketReceipt(ctx, o.cfg.SourceClientID, sequence)
	if err != nil {
		return nil, fmt.Errorf("query packet receipt on %s: %w", o.cfg.DestChainID, err)
	}
	ack, err := o.dst.Client.HasPacketAcknowledgement(ctx, o.cfg.SourceClientID, sequence)
	if err != nil {
		return nil, fmt.Errorf("query packet acknowledgement on %s: %w", o.cfg.DestChainID, err)
	}
	return &PacketStatus{
		Sequence:         sequence,
		CommitmentExists: commitment != nil,
		ReceiptExists:    receipt,
		AckExists:        ack,
	}, nil
}

// Info summarises the pair this orchestrator serves.
type Info struct {
	SourceChainID  string `json:"source_chain_id"`
	DestChainID    string `json:"dest_chain_id"`
	SourceClientID string `json:"source_client_id"`
	DestClientID   string `json:"dest_client_id"`
	InflightTasks  int    `json:"inflight_tasks"`
}

// PairInfo reports the static pair wiring plus live task counts.
func (o *Orchestrator) PairInfo() Info {
	return Info{
		SourceChainID:  o.cfg.SourceChainID,
		DestChainID:    o.cfg.DestChainID,
		SourceClientID: o.cfg.SourceClientID,
		DestClientID:   o.cfg.DestClientID,
		InflightTasks:  o.InflightCount(),
	}
}
