package headercheck

import (
	"context"
	"errors"
	"testing"
)

const validHeader = `/* Generated ROS message type definitions */
#ifndef GENERATED_TYPES_H
#define GENERATED_TYPES_H

#define MSG_LIST(BTYPE, CTYPE, TTYPE, FIELD, ARRAY) \
    BTYPE(ros_Int, \
        "pkg::msg::dds_::Int", \
        "6963bdd", \
        int32_t \
    ) \
    CTYPE(ros_Point, \
        "geometry_msgs::msg::dds_::Point", \
        "ab12", \
        FIELD(double, x) \
        ARRAY(double, cov, 36) \
    )

#define SRV_LIST(SRV, REQUEST, REPLY, FIELD, ARRAY) \
    SRV(srv_Trigger, \
        "std_srvs::srv::dds_::Trigger", \
        "cd34", \
        REQUEST( \
            FIELD(uint8_t, empty) \
        ), \
        REPLY( \
            FIELD(bool, success) \
        ) \
    )

#endif /* GENERATED_TYPES_H */
`

func TestCheckValid(t *testing.T) {
	t.Parallel()

	report, err := Check(context.Background(), []byte(validHeader))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Guard != "GENERATED_TYPES_H" {
		t.Errorf("Guard = %q", report.Guard)
	}
	want := []string{"GENERATED_TYPES_H", "MSG_LIST", "SRV_LIST"}
	if len(report.Macros) != len(want) {
		t.Fatalf("Macros = %v, want %v", report.Macros, want)
	}
	for i, m := range want {
		if report.Macros[i] != m {
			t.Errorf("Macros[%d] = %q, want %q", i, report.Macros[i], m)
		}
	}
}

func TestCheckFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		source  string
		wantErr error
	}{
		{
			name:    "unterminated conditional",
			source:  "#ifndef GENERATED_TYPES_H\n#define GENERATED_TYPES_H\n#define MSG_LIST(A) A\n",
			wantErr: ErrSyntax,
		},
		{
			name:    "no guard",
			source:  "#define MSG_LIST(BTYPE, CTYPE, TTYPE, FIELD, ARRAY)\n",
			wantErr: ErrNoGuard,
		},
		{
			name:    "guard never defined",
			source:  "#ifndef GENERATED_TYPES_H\n#define MSG_LIST(A) A\n#endif\n",
			wantErr: ErrNoGuard,
		},
		{
			name:    "no listing",
			source:  "#ifndef GENERATED_TYPES_H\n#define GENERATED_TYPES_H\n#define OTHER 1\n#endif\n",
			wantErr: ErrNoList,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Check(context.Background(), []byte(tt.source))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReportDefines(t *testing.T) {
	t.Parallel()

	r := &Report{Macros: []string{"A", "MSG_LIST"}}
	if !r.Defines("MSG_LIST") || r.Defines("SRV_LIST") {
		t.Errorf("Defines gave wrong answers for %v", r.Macros)
	}
}
