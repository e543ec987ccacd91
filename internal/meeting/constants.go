package meeting

import "time"

// fallbackConnectDelay is how long a simulated join waits before reporting
// connected, mimicking the handshake latency of a real provider.
const fallbackConnectDelay = 2 * time.Second
