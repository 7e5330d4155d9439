package service

import (
	"fmt"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

// In-app notification titles.
const (
	titleNewApplication   = "มีใบสมัครงานใหม่"
	titleElderlyNeedsInfo = "ใบสมัครงานที่ต้องการข้อมูลเพิ่มเติม"
	titleStatusChanged    = "สถานะใบสมัครงานเปลี่ยนแปลง"
	titlePackageExpired   = "แพ็กเกจหมดอายุ"
)

func newApplicationMessage(jobTitle string, elderly bool) string {
	msg := "มีผู้สมัครงานใหม่สำหรับตำแหน่ง: " + jobTitle
	if elderly {
		msg += " (ผู้สูงอายุ - ต้องการข้อมูลเพิ่มเติม)"
	}
	return msg
}

func elderlyAdminMessage(seekerName, jobTitle string) string {
	return fmt.Sprintf("ผู้สมัครงานสูงอายุ: %s สมัครงาน %s - ต้องการติดต่อเพื่อขอข้อมูลเพิ่มเติม", seekerName, jobTitle)
}

func jobModeratedMessage(jobTitle string, status domain.JobStatus) string {
	if status == domain.JobStatusActive {
		return "ประกาศงาน " + jobTitle + " เผยแพร่แล้ว"
	}
	return "ประกาศงาน " + jobTitle + " ไม่ผ่านการตรวจสอบ กรุณาแก้ไขแล้วส่งใหม่"
}

func packageExpiredMessage(credits int) string {
	return fmt.Sprintf("แพ็กเกจของคุณหมดอายุแล้ว เครดิตคงเหลือ %d เครดิต", credits)
}

// StatusMessage is the seeker-facing text for an application status.
func StatusMessage(s domain.ApplicationStatus) string {
	switch s {
	case domain.StatusReviewing:
		return "กำลังพิจารณาใบสมัครของคุณ"
	case domain.StatusAccepted:
		return "ยินดีด้วย! คุณได้รับการตอบรับเข้าทำงาน"
	case domain.StatusRejected:
		return "ขออภัย ใบสมัครของคุณไม่ผ่านการพิจารณา"
	default:
		return "สถานะใบสมัครของคุณ: " + StatusLabel(s)
	}
}

// StatusLabel is the short Thai label shown next to an application.
func StatusLabel(s domain.ApplicationStatus) string {
	switch s {
	case domain.StatusPending:
		return "รอตรวจสอบ"
	case domain.StatusOpened:
		return "เปิดดูแล้ว"
	case domain.StatusReviewing:
		return "กำลังพิจารณา"
	case domain.StatusInterviewScheduled:
		return "นัดสัมภาษณ์"
	case domain.StatusAccepted:
		return "รับแล้ว"
	case domain.StatusRejected:
		return "ปฏิเสธ"
	case domain.StatusWithdrawn:
		return "ถอนการสมัคร"
	}
	return string(s)
}

func statusPushText(msg, jobTitle, companyName string) string {
	return fmt.Sprintf("🔔 %s\n\nตำแหน่ง: %s\nบริษัท: %s", msg, jobTitle, companyName)
}

func jobTypeLabel(t domain.JobType) string {
	switch t {
	case domain.JobTypeFullTime:
		return "งานเต็มเวลา"
	case domain.JobTypePartTime:
		return "งาน part-time"
	case domain.JobTypeContract:
		return "สัญญาจ้าง"
	case domain.JobTypeInternship:
		return "ฝึกงาน"
	}
	return string(t)
}
