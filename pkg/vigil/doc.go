// Package vigil provides an embeddable log anomaly detection engine.
// It parses raw log lines into numeric feature vectors and flags
// anomalies twice over: deterministic threshold rules first, then a
// statistical outlier model for everything the rules let through.
//
// Quick start:
//
//	v, err := vigil.New(vigil.WithRule("web_server", "response_time", 2000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results := v.Detect([]vigil.Entry{{
//	    Raw:     `{"level":"error","response_time":5000}`,
//	    Service: "web_server",
//	    Format:  vigil.FormatStructured,
//	}})
//	fmt.Println(results[0].IsAnomaly) // true
//
// The Vigil instance is safe for concurrent use. Create once, reuse
// across requests.
package vigil
