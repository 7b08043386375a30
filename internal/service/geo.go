package service

import "math"

// 地球平均半径（米），haversine 距离计算用
const earthRadiusM = 6371000.0

// HaversineDistance 计算两个 WGS84 坐标间的大圆距离（米）
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180.0

	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

// ValidateGPS 校验设备坐标是否落在站点围栏内
//
// 接受条件：distance(device, site) ≤ maxRadius + accuracy，
// 即设备误差半径计入容差，避免在围栏边缘误拒。
// 返回实际距离以便调用方记录日志或提示。
func ValidateGPS(deviceLat, deviceLng, siteLat, siteLng, maxRadius, accuracy float64) (bool, float64) {
	dist := HaversineDistance(deviceLat, deviceLng, siteLat, siteLng)
	return dist <= maxRadius+accuracy, dist
}

