package ipc

const (
	// commandBuffer sizes the inbound control channel; commands are rare.
	commandBuffer = 8

	// dataPreviewLimit truncates base64 payloads when messages degrade to
	// log lines, keeping audio out of the log stream.
	dataPreviewLimit = 64
)
