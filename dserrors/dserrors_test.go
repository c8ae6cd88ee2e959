package dserrors

import "testing"

func TestSetEndiannessFirstCallWins(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	SetEndianness(LittleEndian)
	if got := CurrentEndianness(); got != LittleEndian {
		t.Fatalf("CurrentEndianness() = %v, want LittleEndian", got)
	}

	var reported []Record
	SetErrorHandler(func(r Record) { reported = append(reported, r) })
	SetEndianness(BigEndian)

	if got := CurrentEndianness(); got != LittleEndian {
		t.Fatalf("second SetEndianness call changed the active convention: got %v", got)
	}
	if len(reported) != 1 || reported[0].Kind != ConfigurationConflict {
		t.Fatalf("expected one ConfigurationConflict report, got %v", reported)
	}
}

func TestCurrentEndiannessDefaultsToBigEndian(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()

	if got := CurrentEndianness(); got != BigEndian {
		t.Fatalf("CurrentEndianness() = %v, want BigEndian default", got)
	}
}

func TestReportWithoutHandlerDoesNotPanic(t *testing.T) {
	ResetForTesting()
	defer ResetForTesting()
	Report(Record{Severity: Fatal, Subsystem: "test", Kind: ShapeMismatch, Message: "x"})
}

func TestRecordError(t *testing.T) {
	r := Record{Subsystem: "dsgma", Kind: NotGMA, Message: "bad equation"}
	want := "dsgma: not a GMA: bad equation"
	if got := r.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
