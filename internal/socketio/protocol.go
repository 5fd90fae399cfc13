// Package socketio implements the subset of the Engine.IO v4 / Socket.IO
// protocol the game client speaks: websocket transport only, the default
// namespace, events without acknowledgements.
package socketio

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type enginePacketType byte

const (
	engineOpen    enginePacketType = '0'
	engineClose   enginePacketType = '1'
	enginePing    enginePacketType = '2'
	enginePong    enginePacketType = '3'
	engineMessage enginePacketType = '4'
)

type socketPacketType byte

const (
	socketConnect    socketPacketType = '0'
	socketDisconnect socketPacketType = '1'
	socketEvent      socketPacketType = '2'
)

func parseOptionalNamespace(s string) (namespace string, rest string) {
	if !strings.HasPrefix(s, "/") {
		return "/", s
	}
	comma := strings.IndexByte(s, ',')
	if comma == -1 {
		return "/", s
	}
	return s[:comma], s[comma+1:]
}

// parseOptionalIDPrefix consumes a numeric ack id if the client sent one.
// This server never acknowledges events, but tolerating the prefix keeps
// stock socket.io clients working.
func parseOptionalIDPrefix(s string) (id *int, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		i++
	}
	if i == 0 {
		return nil, s
	}
	v, err := strconv.Atoi(s[:i])
	if err != nil {
		return nil, s
	}
	return &v, s[i:]
}

type eventPacket struct {
	Namespace string
	Event     string
	Args      []json.RawMessage
}

func parseEventPacket(payload string) (eventPacket, error) {
	if payload == "" {
		return eventPacket{}, errors.New("empty payload")
	}
	if payload[0] != byte(socketEvent) {
		return eventPacket{}, errors.New("not an event packet")
	}

	ns, rest := parseOptionalNamespace(payload[1:])
	_, rest = parseOptionalIDPrefix(rest)
	if !strings.HasPrefix(rest, "[") {
		return eventPacket{}, errors.New("invalid event payload")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(rest), &arr); err != nil {
		return eventPacket{}, err
	}
	if len(arr) == 0 {
		return eventPacket{}, errors.New("missing event name")
	}
	var eventName string
	if err := json.Unmarshal(arr[0], &eventName); err != nil {
		return eventPacket{}, errors.New("invalid event name")
	}

	return eventPacket{Namespace: ns, Event: eventName, Args: arr[1:]}, nil
}

func buildEventPacket(namespace string, event string, args ...any) (string, error) {
	arr := make([]any, 0, 1+len(args))
	arr = append(arr, event)
	arr = append(arr, args...)
	data, err := json.Marshal(arr)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(byte(engineMessage))
	b.WriteByte(byte(socketEvent))
	if namespace != "" && namespace != "/" {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
	b.Write(data)
	return b.String(), nil
}

func buildConnectPacket(namespace string, sid string) (string, error) {
	data, err := json.Marshal(map[string]string{"sid": sid})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteByte(byte(engineMessage))
	b.WriteByte(byte(socketConnect))
	if namespace != "" && namespace != "/" {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
	b.Write(data)
	return b.String(), nil
}
