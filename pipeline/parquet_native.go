package pipeline

import (
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// metricsParquetRow mirrors MetricsHeader. Non-finite metrics are written as NaN.
type metricsParquetRow struct {
	JumpKey        string  `parquet:"name=jump_key, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName      string  `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	LastName       string  `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	JumpDate       string  `parquet:"name=jump_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	TakeoffRule    string  `parquet:"name=takeoff_rule, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SampleInterval float64 `parquet:"name=sample_interval_s, type=DOUBLE"`
	WeightMean     float64 `parquet:"name=weight_mean_n, type=DOUBLE"`
	WeightStd      float64 `parquet:"name=weight_std_n, type=DOUBLE"`
	VPeakProp      float64 `parquet:"name=v_peak_prop, type=DOUBLE"`
	VPeakNeg       float64 `parquet:"name=v_peak_neg, type=DOUBLE"`
	VAvgNeg        float64 `parquet:"name=v_avg_neg, type=DOUBLE"`
	TToVPeakProp   float64 `parquet:"name=t_to_v_peak_prop, type=DOUBLE"`
	VAvg100Prop    float64 `parquet:"name=v_avg_100_prop, type=DOUBLE"`
	AAvg100Prop    float64 `parquet:"name=a_avg_100_prop, type=DOUBLE"`
	APeak100Prop   float64 `parquet:"name=a_peak_100_prop, type=DOUBLE"`
	VPeak100Prop   float64 `parquet:"name=v_peak_100_prop, type=DOUBLE"`
	APeakPos       float64 `parquet:"name=a_peak_pos, type=DOUBLE"`
}

func writeMetricsParquet(fw source.ParquetFile, rows []JumpRow) error {
	pw, err := writer.NewParquetWriter(fw, new(metricsParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		m := r.Metrics
		row := metricsParquetRow{
			JumpKey:        r.Key,
			FirstName:      r.FirstName,
			LastName:       r.LastName,
			JumpDate:       r.JumpDate,
			TakeoffRule:    r.TakeoffRule,
			SampleInterval: r.SampleInterval,
			WeightMean:     r.WeightMean,
			WeightStd:      r.WeightStd,
			VPeakProp:      m.VPeakProp,
			VPeakNeg:       m.VPeakNeg,
			VAvgNeg:        m.VAvgNeg,
			TToVPeakProp:   m.TToVPeakProp,
			VAvg100Prop:    m.VAvg100Prop,
			AAvg100Prop:    m.AAvg100Prop,
			APeak100Prop:   m.APeak100Prop,
			VPeak100Prop:   m.VPeak100Prop,
			APeakPos:       m.APeakPos,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}
