// Package security builds the client TLS configuration shared by the Kafka
// transport and the whisper HTTP client.
//
//	tlsCfg, err := (&security.ClientTLS{
//	    CAFile:   "/etc/scribegate/ca.pem",
//	    CertFile: "/etc/scribegate/client.pem",
//	    KeyFile:  "/etc/scribegate/client-key.pem",
//	}).Build()
package security
