package session

import (
	"minigames/internal/game"
	"minigames/internal/game/deduction"
	"minigames/internal/game/shooter"
	"minigames/internal/network"
	"minigames/internal/session/message"
)

func (h *GameHandler) registerGameHandlers() {
	h.register(message.JoinSession, handleJoinSession)
	h.register(message.RequestSessionState, handleRequestSessionState)

	h.register(message.Move, handleMove)
	h.register(message.Shoot, handleShoot)

	h.register(message.SubmitClue, handleSubmitClue)
	h.register(message.SubmitVote, handleSubmitVote)
	h.register(message.SendChat, handleSendChat)
	h.register(message.RequestRoleInfo, handleRequestRoleInfo)
}

// session resolves the target session and checks its kind when want is set.
func (h *GameHandler) session(p *Player, id string, want game.Kind) (game.Session, error) {
	id = p.sessionOr(id)
	if err := required("sessionId", id); err != nil {
		return nil, err
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if want != "" && s.Kind() != want {
		return nil, game.Errorf(game.CodeWrongPhase, "session %s is a %s game", id, s.Kind())
	}
	return s, nil
}

// handleJoinSession (re)attaches the player, which also covers late joins.
func handleJoinSession(h *GameHandler, p *Player, msg network.Message) error {
	var req sessionPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if err := required("sessionId", req.SessionID); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, "")
	if err != nil {
		return err
	}
	if err := s.Deliver(game.Attach{Identity: p.Identity}); err != nil {
		return err
	}
	p.SessionID = s.ID()
	p.LobbyID = ""
	return nil
}

func handleRequestSessionState(h *GameHandler, p *Player, msg network.Message) error {
	var req sessionPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, "")
	if err != nil {
		return err
	}
	return s.Deliver(game.StateRequest{Identity: p.Identity})
}

func handleMove(h *GameHandler, p *Player, msg network.Message) error {
	var req movePayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, game.KindShooter)
	if err != nil {
		return err
	}
	return s.Deliver(shooter.Move{Player: p.Identity, X: req.X, Y: req.Y})
}

func handleShoot(h *GameHandler, p *Player, msg network.Message) error {
	var req sessionPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, game.KindShooter)
	if err != nil {
		return err
	}
	return s.Deliver(shooter.Shoot{Player: p.Identity})
}

func handleSubmitClue(h *GameHandler, p *Player, msg network.Message) error {
	var req textPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, game.KindSocialDeduction)
	if err != nil {
		return err
	}
	return s.Deliver(deduction.SubmitClue{Player: p.Identity, Text: req.Text})
}

func handleSubmitVote(h *GameHandler, p *Player, msg network.Message) error {
	var req votePayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	if !req.Skip {
		if err := required("target", req.Target); err != nil {
			return err
		}
	}
	s, err := h.session(p, req.SessionID, game.KindSocialDeduction)
	if err != nil {
		return err
	}
	return s.Deliver(deduction.CastVote{Player: p.Identity, Target: req.Target, Skip: req.Skip})
}

func handleSendChat(h *GameHandler, p *Player, msg network.Message) error {
	var req textPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, game.KindSocialDeduction)
	if err != nil {
		return err
	}
	return s.Deliver(deduction.Chat{Player: p.Identity, Text: req.Text})
}

func handleRequestRoleInfo(h *GameHandler, p *Player, msg network.Message) error {
	var req sessionPayload
	if err := decode(msg, &req); err != nil {
		return err
	}
	s, err := h.session(p, req.SessionID, game.KindSocialDeduction)
	if err != nil {
		return err
	}
	return s.Deliver(deduction.RoleInfoRequest{Player: p.Identity})
}
