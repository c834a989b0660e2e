package http

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func inboundToCommand(v *proto.Validator, inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if perr := decodeData(inbound.Data, &join); perr != nil {
			return nil, perr
		}
		if err := v.Struct(join); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Room: join.Chat,
			User: join.Username,
		}, nil
	case proto.InboundTypeSend:
		var msg proto.SendData
		if perr := decodeData(inbound.Data, &msg); perr != nil {
			return nil, perr
		}
		if err := v.Struct(msg); err != nil {
			return nil, badRequest(err.Error())
		}
		if err := v.Body(msg.Message); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{
			Kind: core.CommandSendRoomMessage,
			Room: msg.Chat,
			User: msg.Username,
			Text: msg.Message,
		}, nil
	case proto.InboundTypeChangeUsername:
		var rename proto.ChangeUsernameData
		if perr := decodeData(inbound.Data, &rename); perr != nil {
			return nil, perr
		}
		if err := v.Struct(rename); err != nil {
			return nil, badRequest(err.Error())
		}
		return &core.Command{
			Kind:    core.CommandChangeUsername,
			User:    rename.OldUsername,
			NewUser: rename.NewUsername,
		}, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

// decodeData treats a missing data field like an empty object so required-field
// validation reports what is absent.
func decodeData(raw json.RawMessage, dst any) *proto.Error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return badRequest("malformed data: " + err.Error())
	}
	return nil
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func messageToProto(msg core.Message) proto.Message {
	return proto.Message{
		ID:        msg.ID,
		Chat:      msg.Room,
		Username:  msg.From,
		Message:   msg.Text,
		Timestamp: msg.CreatedAt,
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return eventFrame(proto.EventNewMessage, messageToProto(event.Message))
	case core.EventUserJoined:
		return eventFrame(proto.EventUserJoined, proto.UserEvent{Chat: event.Room, Username: event.User})
	case core.EventUserLeft:
		return eventFrame(proto.EventUserLeft, proto.UserEvent{Chat: event.Room, Username: event.User})
	case core.EventHistory:
		return eventFrame(proto.EventLoadMessages, lo.Map(event.Messages, func(m core.Message, _ int) proto.Message {
			return messageToProto(m)
		}))
	case core.EventMemberList:
		members := event.Members
		if members == nil {
			members = []string{}
		}
		return eventFrame(proto.EventUpdateUsers, members)
	case core.EventUsernameChanged:
		return eventFrame(proto.EventUsernameChanged, proto.UsernameChanged{
			Chat:        event.Room,
			OldUsername: event.User,
			NewUsername: event.NewUser,
			Updated:     event.Updated,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventFrame(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}
