package placement

import "encoding/json"

func encodeEvent(ev MembershipEvent) string {
	b, _ := json.Marshal(ev)
	return string(b)
}

func decodeEvent(payload string) (MembershipEvent, error) {
	var ev MembershipEvent
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
