package messaging

// HealthStatus represents the health state of a messaging connection.
type HealthStatus struct {
	// Connected indicates if the client is connected.
	Connected bool `json:"connected"`

	// Error contains any error message if unhealthy.
	Error string `json:"error,omitempty"`
}

// CheckHealth reports whether conn is usable.
func CheckHealth(conn Connection) HealthStatus {
	if conn == nil {
		return HealthStatus{Error: "messaging disabled"}
	}
	if !conn.IsConnected() {
		return HealthStatus{Error: "not connected to message broker"}
	}
	return HealthStatus{Connected: true}
}
