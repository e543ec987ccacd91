package rtms

// Wire shapes for the gateway control channel. Media arrives on the
// same connection as binary frames and has no envelope.

type joinFrame struct {
	Action      string      `json:"action"`
	MeetingID   string      `json:"meetingId"`
	Password    string      `json:"password,omitempty"`
	DisplayName string      `json:"displayName"`
	Token       string      `json:"token"`
	ClientID    string      `json:"clientId"`
	Audio       audioParams `json:"audio"`
}

type audioParams struct {
	SampleRate int `json:"sampleRate"`
	Channels   int `json:"channels"`
}

type leaveFrame struct {
	Action string `json:"action"`
}

type gatewayEvent struct {
	Event       string           `json:"event"`
	Code        int              `json:"code"`
	Message     string           `json:"message,omitempty"`
	SessionID   string           `json:"sessionId,omitempty"`
	Participant *wireParticipant `json:"participant,omitempty"`
	Speaker     *wireSpeaker     `json:"speaker,omitempty"`
}

type wireParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	IsHost bool   `json:"isHost,omitempty"`
}

type wireSpeaker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
